package models

import (
	"time"

	"gorm.io/datatypes"
)

type LedgerChangeReason string

const (
	LedgerChangeReasonPurchase    LedgerChangeReason = "purchase"
	LedgerChangeReasonUsage       LedgerChangeReason = "usage"
	LedgerChangeReasonManualGrant LedgerChangeReason = "manual_grant"
)

// LedgerLog records before/after snapshots of a ledger row for every
// mutation. Written asynchronously; failures are logged, not surfaced.
type LedgerLog struct {
	ID            string                      `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID        string                      `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	TransactionID string                      `gorm:"column:transaction_id;type:varchar(128)" json:"transaction_id"`
	Reason        LedgerChangeReason          `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	Before        datatypes.JSONType[*Ledger] `gorm:"column:before;type:jsonb" json:"before"`
	After         datatypes.JSONType[*Ledger] `gorm:"column:after;type:jsonb" json:"after"`
	Extra         datatypes.JSONMap           `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt     time.Time                   `json:"created_at"`
}

func (LedgerLog) TableName() string { return "ledger_log" }

package models

import (
	"time"

	"gorm.io/datatypes"
)

type CallbackLogStatus string

const (
	CallbackLogStatusReceived     CallbackLogStatus = "received"
	CallbackLogStatusHandled      CallbackLogStatus = "handled"
	CallbackLogStatusHandleFailed CallbackLogStatus = "handle_failed"
)

// CallbackLog is the audit trail of provider callbacks. Every notification
// is recorded on arrival and again after processing, including rejected and
// duplicate ones.
type CallbackLog struct {
	ID            string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	MerchantID    string            `gorm:"column:merchant_id;type:varchar(64);not null" json:"merchant_id"`
	UserID        *string           `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID       string            `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	TransactionID string            `gorm:"column:transaction_id;type:varchar(128)" json:"transaction_id"`
	Data          datatypes.JSON    `gorm:"column:data;type:jsonb" json:"data"`
	Result        *datatypes.JSON   `gorm:"column:result;type:jsonb" json:"result"`
	Status        CallbackLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (CallbackLog) TableName() string { return "callback_log" }

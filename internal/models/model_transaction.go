package models

import (
	"time"

	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// TransactionExtra carries the reconciliation snapshot recorded at
// completion time.
type TransactionExtra struct {
	// PaidAmount is the rupee total reported by the provider (GST inclusive).
	PaidAmount int64 `json:"paid_amount,omitempty"`
	// BaseAmount is the rounded pre-tax amount used for grant resolution.
	BaseAmount int64 `json:"base_amount,omitempty"`
	// ProviderCode is the raw provider status token.
	ProviderCode string `json:"provider_code,omitempty"`
	// OperatorID is set for manual grants issued through the admin API.
	OperatorID string `json:"operator_id,omitempty"`
}

// Transaction is one purchase attempt. Created pending by the checkout
// initiator and flipped to completed exactly once by the reconciler; rows
// are never deleted.
type Transaction struct {
	ID     string `gorm:"column:id;primary_key;type:uuid;index:idx_user_id_id,priority:2,sort:desc" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_id_id,priority:1" json:"user_id"`
	// MerchantID is the provider merchant account the payment ran through.
	MerchantID string `gorm:"column:merchant_id;type:varchar(64);not null" json:"merchant_id"`
	// TransactionID is the reference shared with the provider. It is the
	// idempotency key: unique across the whole system.
	TransactionID string            `gorm:"column:transaction_id;type:varchar(64);not null;uniqueIndex" json:"transaction_id"`
	Status        TransactionStatus `gorm:"column:status;type:varchar(32);not null;default:'pending'" json:"status"`
	// Amount is the rupee total recorded at initiation (minor units / 100).
	Amount int64 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	// ProductName identifies the purchase: a service name for pro tiers or
	// an "<N>_credits" pack.
	ProductName string `gorm:"column:product_name;type:varchar(128);not null" json:"product_name"`
	// CreditsRequested is the credit amount recorded at initiation; zero for
	// pro-tier SKUs.
	CreditsRequested int64      `gorm:"column:credits_requested;type:bigint;not null;default:0" json:"credits_requested"`
	CompletedAt      *time.Time `gorm:"column:completed_at;default:null" json:"completed_at"`

	Extra     datatypes.JSONType[*TransactionExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time                             `json:"created_at"`
	UpdatedAt time.Time                             `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}

func (t *Transaction) Completed() bool {
	return t != nil && t.Status == TransactionStatusCompleted
}

package models

import (
	"time"

	"github.com/voicemint/billing/pkg/types"
)

// Ledger is the per-user credit record. One row per user, created at
// registration with zero balances and kept for the lifetime of the account.
// Every counter is mutated only through SQL-level increments; balances are
// never recomputed at the application layer.
type Ledger struct {
	ID     string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	// CommonCredits is the shared balance consumed by metered usage and
	// topped up by credit-pack purchases.
	CommonCredits int64 `gorm:"column:common_credits;type:bigint;not null;default:0" json:"common_credits"`
	// Per-service allowances granted by pro-tier purchases.
	TTSCharacters       int64 `gorm:"column:tts_characters;type:bigint;not null;default:0" json:"tts_characters"`
	CloneCharacters     int64 `gorm:"column:clone_characters;type:bigint;not null;default:0" json:"clone_characters"`
	TalkingImageSeconds int64 `gorm:"column:talking_image_seconds;type:bigint;not null;default:0" json:"talking_image_seconds"`
	// ProService/ProExpireAt mark an active pro entitlement for one service.
	ProService  *types.Service `gorm:"column:pro_service;type:varchar(64);default:null" json:"pro_service"`
	ProExpireAt *time.Time     `gorm:"column:pro_expire_at;default:null" json:"pro_expire_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ledger) TableName() string {
	return "ledger"
}

// AllowanceFor returns the current allowance of a service counter.
func (l *Ledger) AllowanceFor(svc types.Service) int64 {
	if l == nil {
		return 0
	}
	switch svc {
	case types.ServiceVoiceClone:
		return l.CloneCharacters
	case types.ServiceTalkingImage:
		return l.TalkingImageSeconds
	default:
		return l.TTSCharacters
	}
}

// ProActive reports whether the pro entitlement is currently valid.
func (l *Ledger) ProActive(now time.Time) bool {
	return l != nil && l.ProService != nil && l.ProExpireAt != nil && l.ProExpireAt.After(now)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusClaim is a one-time credit granted from the bonus catalog. The
// (user_id, bonus_id) unique index is the idempotency key.
type BonusClaim struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index;uniqueIndex:idx_claim_once" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BonusID   string          `gorm:"size:50;not null;uniqueIndex:idx_claim_once" json:"bonus_id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	ClaimedAt time.Time       `json:"claimed_at"`
}

func (BonusClaim) TableName() string {
	return "bonus_claims"
}

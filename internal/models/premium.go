package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PremiumAssignment is the single active administrative credit for a user.
// Assigning again overwrites it; revocation deletes it.
type PremiumAssignment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	User       *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Position   int             `gorm:"not null" json:"position"`
	AssignedAt time.Time       `json:"assigned_at"`
}

func (PremiumAssignment) TableName() string {
	return "premium_assignments"
}

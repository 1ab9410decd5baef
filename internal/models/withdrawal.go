package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal request lifecycle. PENDING is the only non-terminal state.
const (
	WithdrawalPending  = "PENDING"
	WithdrawalApproved = "APPROVED"
	WithdrawalDenied   = "DENIED"
)

// WithdrawalRequest is a user's request to debit their balance. The status
// column doubles as the pending/approved/denied queue.
type WithdrawalRequest struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status       string          `gorm:"size:20;default:PENDING;index" json:"status"`
	DenialReason string          `gorm:"size:255" json:"denial_reason,omitempty"`
	RequestedAt  time.Time       `json:"requested_at"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	DeniedAt     *time.Time      `json:"denied_at,omitempty"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

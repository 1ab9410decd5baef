package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VIP tiers, ordered from lowest to highest.
const (
	VIPNormal   = "NORMAL"
	VIPSilver   = "SILVER"
	VIPGold     = "GOLD"
	VIPPlatinum = "PLATINUM"
	VIPDiamond  = "DIAMOND"
)

var vipRank = map[string]int{
	VIPNormal:   0,
	VIPSilver:   1,
	VIPGold:     2,
	VIPPlatinum: 3,
	VIPDiamond:  4,
}

// VIPAtLeast reports whether tier is at or above the required tier.
func VIPAtLeast(tier, required string) bool {
	return vipRank[tier] >= vipRank[required]
}

// User is the ledger record for a platform member. Balance and freeze state
// are mutated only through the services layer.
type User struct {
	ID                      uint            `gorm:"primaryKey" json:"id"`
	Nickname                string          `gorm:"uniqueIndex;not null" json:"nickname"`
	Email                   string          `gorm:"index" json:"email"`
	InviteCode              string          `gorm:"uniqueIndex;size:20;not null" json:"invite_code"`
	PasswordHash            string          `json:"-"`
	WithdrawalPassword      string          `json:"-"`
	Balance                 decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"balance"`
	AccountFrozen           bool            `gorm:"default:false" json:"account_frozen"`
	FreezeAmount            decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"freeze_amount"`
	ParentUserID            *uint           `gorm:"index" json:"parent_user_id,omitempty"`
	Parent                  *User           `gorm:"foreignKey:ParentUserID" json:"parent,omitempty"`
	ChildCount              int             `gorm:"default:0" json:"child_count"`
	TotalProfitFromChildren decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"total_profit_from_children"`
	VIPTier                 string          `gorm:"column:vip_tier;size:20;default:NORMAL" json:"vip_tier"`
	SubmissionCount         int             `gorm:"default:0" json:"submission_count"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

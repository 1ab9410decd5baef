package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralEdge is a parent->child recruitment link, created once at signup
// when a valid invitation code resolves to a parent. TotalSharedProfit is
// mutated only by the cascade engine at level 1.
type ReferralEdge struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	ParentID          uint            `gorm:"not null;index;uniqueIndex:idx_edge_pair" json:"parent_id"`
	Parent            *User           `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	ChildID           uint            `gorm:"not null;index;uniqueIndex:idx_edge_pair" json:"child_id"`
	Child             *User           `gorm:"foreignKey:ChildID" json:"child,omitempty"`
	TotalSharedProfit decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"total_shared_profit"`
	LastProductAt     *time.Time      `json:"last_product_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (ReferralEdge) TableName() string {
	return "referral_edges"
}

// ProfitStats holds the append-only earnings aggregate for a user. ByLevel
// maps cascade level to the commission accumulated at that level.
type ProfitStats struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	UserID                uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	User                  *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalEarned           decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"total_earned"`
	FromDirectChildren    decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"from_direct_children"`
	FromIndirectReferrals decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"from_indirect_referrals"`
	ByLevel               DecimalMap      `gorm:"type:jsonb" json:"by_level"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (ProfitStats) TableName() string {
	return "profit_stats"
}

package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"referral-platform/internal/models"
)

// loadUser fetches a ledger record, mapping a missing row to ErrNotFound.
func loadUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return &user, nil
}

// creditBalance applies an atomic increment to a user's balance. Using an
// expression rather than read-modify-write keeps concurrent cascades from
// losing updates on shared ancestors.
func creditBalance(db *gorm.DB, userID uint, amount decimal.Decimal) error {
	return db.Model(&models.User{}).Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

// addProfit accumulates earnings into a user's ProfitStats aggregate.
// Level 0 records the user's own submission earnings; level 1 routes to
// direct-children profit, deeper levels to indirect referrals. The monetary
// columns are applied as SQL increments: cascade and bonus writers hold
// different service locks, so a full-row save would lose one of two
// concurrent credits. ByLevel stays read-modify-write because only the
// cascade walk writes levels >= 1, and it serializes those writes.
func addProfit(db *gorm.DB, userID uint, amount decimal.Decimal, level int) error {
	var stats models.ProfitStats
	err := db.Where("user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.ProfitStats{UserID: userID, ByLevel: models.DecimalMap{}}
		if createErr := db.Create(&stats).Error; createErr != nil {
			if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("failed to create profit stats for user %d: %w", userID, createErr)
			}
			// Another writer created the row first; reload it.
			if err := db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
				return fmt.Errorf("failed to load profit stats for user %d: %w", userID, err)
			}
		}
	} else if err != nil {
		return fmt.Errorf("failed to load profit stats for user %d: %w", userID, err)
	}

	updates := map[string]interface{}{
		"total_earned": gorm.Expr("total_earned + ?", amount),
		"updated_at":   time.Now(),
	}
	switch {
	case level == 1:
		updates["from_direct_children"] = gorm.Expr("from_direct_children + ?", amount)
	case level > 1:
		updates["from_indirect_referrals"] = gorm.Expr("from_indirect_referrals + ?", amount)
	}
	if level >= 1 {
		if stats.ByLevel == nil {
			stats.ByLevel = models.DecimalMap{}
		}
		key := strconv.Itoa(level)
		stats.ByLevel[key] = stats.ByLevel[key].Add(amount)
		updates["by_level"] = stats.ByLevel
	}

	if err := db.Model(&models.ProfitStats{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to save profit stats for user %d: %w", userID, err)
	}
	return nil
}

// writeAudit appends an audit trail entry. Audit failures are logged by
// callers but never fail the operation they describe.
func writeAudit(db *gorm.DB, action, resourceType string, resourceID *uint, details models.JSONB) error {
	entry := models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}
	return db.Create(&entry).Error
}

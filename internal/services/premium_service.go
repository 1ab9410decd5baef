package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"referral-platform/internal/models"
)

// unfreezeIncentive is the fixed credit added when a frozen account is
// released.
var unfreezeIncentive = decimal.NewFromInt(150)

// balanceWriteAttempts bounds the retry loop around absolute balance
// writes. Freeze and unfreeze compute a new balance from a read, so the
// write is guarded against a concurrent credit landing in between.
const balanceWriteAttempts = 3

// PremiumResult is the outcome of a premium assignment.
type PremiumResult struct {
	User              *models.User    `json:"user"`
	BoostedCommission decimal.Decimal `json:"boosted_commission"`
	Frozen            bool            `json:"frozen"`
}

// PremiumService applies administrative commission-like credits. An
// assignment larger than the user's current balance forces the account into
// a frozen state with a negative balance until explicitly unfrozen.
type PremiumService struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewPremiumService(db *gorm.DB) *PremiumService {
	return &PremiumService{db: db}
}

// Assign injects a premium credit. When amount exceeds the current balance
// the balance is set to -(amount - balance) and the account freezes for the
// full amount; otherwise the amount is credited directly. The assignment
// overwrites any previous one for the user.
func (s *PremiumService) Assign(userID uint, amount decimal.Decimal, position int) (*PremiumResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: premium amount must be positive", ErrValidation)
	}
	if position <= 0 {
		return nil, fmt.Errorf("%w: position must be positive", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var user *models.User
	var shouldFreeze bool
	applied := false
	for attempt := 0; attempt < balanceWriteAttempts && !applied; attempt++ {
		loaded, err := loadUser(s.db, userID)
		if err != nil {
			return nil, err
		}
		user = loaded

		shouldFreeze = amount.GreaterThan(user.Balance)
		updates := map[string]interface{}{
			"submission_count": gorm.Expr("submission_count + 1"),
		}
		if !shouldFreeze {
			updates["balance"] = gorm.Expr("balance + ?", amount)
			if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("failed to apply premium for user %d: %w", user.ID, err)
			}
			applied = true
			break
		}

		// The freeze formula writes an absolute balance computed from the
		// read above, so it only applies while that read is still current.
		updates["balance"] = amount.Sub(user.Balance).Neg()
		updates["account_frozen"] = true
		updates["freeze_amount"] = amount
		result := s.db.Model(&models.User{}).
			Where("id = ? AND balance = ?", user.ID, user.Balance).
			Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to apply premium for user %d: %w", user.ID, result.Error)
		}
		applied = result.RowsAffected > 0
	}
	if !applied {
		return nil, fmt.Errorf("%w: balance for user %d kept changing during premium assignment", ErrConflict, userID)
	}

	now := time.Now()
	var assignment models.PremiumAssignment
	result := s.db.Where("user_id = ?", user.ID).First(&assignment)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		assignment = models.PremiumAssignment{
			UserID:     user.ID,
			Amount:     amount,
			Position:   position,
			AssignedAt: now,
		}
		if err := s.db.Create(&assignment).Error; err != nil {
			return nil, fmt.Errorf("failed to record premium assignment: %w", err)
		}
	} else if result.Error != nil {
		return nil, fmt.Errorf("failed to load premium assignment: %w", result.Error)
	} else {
		if err := s.db.Model(&assignment).Updates(map[string]interface{}{
			"amount":      amount,
			"position":    position,
			"assigned_at": now,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to overwrite premium assignment: %w", err)
		}
	}

	if err := writeAudit(s.db, "PREMIUM_ASSIGN", "USER", &user.ID, models.JSONB{
		"amount":   amount.String(),
		"position": position,
		"frozen":   shouldFreeze,
	}); err != nil {
		log.Printf("Warning: failed to write premium audit for user %d: %v", user.ID, err)
	}

	updated, err := loadUser(s.db, user.ID)
	if err != nil {
		return nil, err
	}

	log.Printf("Premium assigned: user %d amount %s position %d frozen=%v", user.ID, amount, position, shouldFreeze)
	return &PremiumResult{User: updated, BoostedCommission: amount, Frozen: shouldFreeze}, nil
}

// Revoke clears the user's active assignment and freeze state. The balance
// itself is left as-is.
func (s *PremiumService) Revoke(userID uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := loadUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	var assignment models.PremiumAssignment
	if err := s.db.Where("user_id = ?", user.ID).First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active premium assignment for user %d", ErrNotFound, user.ID)
		}
		return nil, fmt.Errorf("failed to load premium assignment: %w", err)
	}

	if err := s.db.Delete(&assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to revoke premium assignment: %w", err)
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"account_frozen": false,
			"freeze_amount":  decimal.Zero,
		}).Error; err != nil {
		return nil, fmt.Errorf("failed to clear freeze state for user %d: %w", user.ID, err)
	}

	if err := writeAudit(s.db, "PREMIUM_REVOKE", "USER", &user.ID, models.JSONB{
		"original_amount": assignment.Amount.String(),
	}); err != nil {
		log.Printf("Warning: failed to write revoke audit for user %d: %v", user.ID, err)
	}

	log.Printf("Premium revoked: user %d (original amount %s)", user.ID, assignment.Amount)
	return loadUser(s.db, user.ID)
}

// Unfreeze releases a frozen account: the balance becomes
// abs(balance) + freezeAmount + the fixed incentive, and the freeze state
// clears. Calling it on an account that is not frozen is a no-op.
func (s *PremiumService) Unfreeze(userID uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < balanceWriteAttempts; attempt++ {
		user, err := loadUser(s.db, userID)
		if err != nil {
			return nil, err
		}
		if !user.AccountFrozen {
			return user, nil
		}

		// Absolute write computed from the read; guarded like the freeze
		// path so a concurrent credit is never overwritten.
		newBalance := user.Balance.Abs().Add(user.FreezeAmount).Add(unfreezeIncentive)
		result := s.db.Model(&models.User{}).
			Where("id = ? AND balance = ?", user.ID, user.Balance).
			Updates(map[string]interface{}{
				"balance":        newBalance,
				"account_frozen": false,
				"freeze_amount":  decimal.Zero,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to unfreeze user %d: %w", user.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}

		if err := writeAudit(s.db, "ACCOUNT_UNFREEZE", "USER", &user.ID, models.JSONB{
			"previous_balance": user.Balance.String(),
			"freeze_amount":    user.FreezeAmount.String(),
			"new_balance":      newBalance.String(),
		}); err != nil {
			log.Printf("Warning: failed to write unfreeze audit for user %d: %v", user.ID, err)
		}

		log.Printf("Account unfrozen: user %d balance %s", user.ID, newBalance)
		return loadUser(s.db, user.ID)
	}
	return nil, fmt.Errorf("%w: balance for user %d kept changing during unfreeze", ErrConflict, userID)
}

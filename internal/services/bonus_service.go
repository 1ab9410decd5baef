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

// BonusSnapshot is the read-only view a bonus predicate is evaluated
// against.
type BonusSnapshot struct {
	VIPTier           string
	DirectReferrals   int64
	IndirectReferrals int64
	Submissions       int64
	Balance           decimal.Decimal
	TotalEarned       decimal.Decimal
}

// BonusRule is one entry of the fixed bonus catalog.
type BonusRule struct {
	ID       string
	Name     string
	Amount   decimal.Decimal
	Category string
	Eligible func(snap BonusSnapshot) bool
}

// BonusCatalog is the fixed set of one-time bonuses.
var BonusCatalog = []BonusRule{
	{
		ID: "first-submission", Name: "First Submission", Category: "activity",
		Amount:   decimal.NewFromInt(50),
		Eligible: func(s BonusSnapshot) bool { return s.Submissions >= 1 },
	},
	{
		ID: "ten-submissions", Name: "Active Seller", Category: "activity",
		Amount:   decimal.NewFromInt(150),
		Eligible: func(s BonusSnapshot) bool { return s.Submissions >= 10 },
	},
	{
		ID: "five-recruits", Name: "Team Builder", Category: "recruiting",
		Amount:   decimal.NewFromInt(100),
		Eligible: func(s BonusSnapshot) bool { return s.DirectReferrals >= 5 },
	},
	{
		ID: "twenty-recruits", Name: "Network Leader", Category: "recruiting",
		Amount:   decimal.NewFromInt(500),
		Eligible: func(s BonusSnapshot) bool { return s.DirectReferrals >= 20 },
	},
	{
		ID: "deep-network", Name: "Deep Network", Category: "recruiting",
		Amount:   decimal.NewFromInt(200),
		Eligible: func(s BonusSnapshot) bool { return s.IndirectReferrals >= 10 },
	},
	{
		ID: "earnings-1k", Name: "Rising Earner", Category: "earnings",
		Amount:   decimal.NewFromInt(100),
		Eligible: func(s BonusSnapshot) bool { return s.TotalEarned.GreaterThanOrEqual(decimal.NewFromInt(1000)) },
	},
	{
		ID: "earnings-10k", Name: "Top Earner", Category: "earnings",
		Amount:   decimal.NewFromInt(1000),
		Eligible: func(s BonusSnapshot) bool { return s.TotalEarned.GreaterThanOrEqual(decimal.NewFromInt(10000)) },
	},
	{
		ID: "vip-silver", Name: "Silver Member", Category: "vip",
		Amount:   decimal.NewFromInt(200),
		Eligible: func(s BonusSnapshot) bool { return models.VIPAtLeast(s.VIPTier, models.VIPSilver) },
	},
	{
		ID: "vip-gold", Name: "Gold Member", Category: "vip",
		Amount:   decimal.NewFromInt(800),
		Eligible: func(s BonusSnapshot) bool { return models.VIPAtLeast(s.VIPTier, models.VIPGold) },
	},
}

// BonusStatus is one catalog entry resolved against a user.
type BonusStatus struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Claimed  bool            `json:"claimed"`
	Eligible bool            `json:"eligible"`
	Status   string          `json:"status"` // claimed, ready, locked
}

// ClaimResult reports the ledger state after a successful claim.
type ClaimResult struct {
	NewBalance  decimal.Decimal `json:"new_balance"`
	TotalEarned decimal.Decimal `json:"total_earned"`
}

// BonusService evaluates the catalog against ledger/graph/product snapshots
// and grants idempotent one-time credits.
type BonusService struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewBonusService(db *gorm.DB) *BonusService {
	return &BonusService{db: db}
}

// ListBonuses resolves the catalog for a user: claimed when in the claim
// log, ready when the predicate holds, locked otherwise.
func (s *BonusService) ListBonuses(userID uint) ([]BonusStatus, error) {
	snap, err := s.snapshot(userID)
	if err != nil {
		return nil, err
	}

	var claims []models.BonusClaim
	if err := s.db.Where("user_id = ?", userID).Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("failed to load claims for user %d: %w", userID, err)
	}
	claimed := make(map[string]bool, len(claims))
	for _, c := range claims {
		claimed[c.BonusID] = true
	}

	statuses := make([]BonusStatus, 0, len(BonusCatalog))
	for _, rule := range BonusCatalog {
		status := BonusStatus{
			ID:       rule.ID,
			Name:     rule.Name,
			Amount:   rule.Amount,
			Category: rule.Category,
			Claimed:  claimed[rule.ID],
			Eligible: rule.Eligible(*snap),
		}
		switch {
		case status.Claimed:
			status.Status = "claimed"
		case status.Eligible:
			status.Status = "ready"
		default:
			status.Status = "locked"
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Claim grants a catalog bonus once. A second claim for the same id fails
// with a conflict and leaves the balance untouched.
func (s *BonusService) Claim(userID uint, bonusID string) (*ClaimResult, error) {
	rule := findBonus(bonusID)
	if rule == nil {
		return nil, fmt.Errorf("%w: bonus %q is not in the catalog", ErrNotFound, bonusID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(userID)
	if err != nil {
		return nil, err
	}

	var existing models.BonusClaim
	err = s.db.Where("user_id = ? AND bonus_id = ?", userID, bonusID).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: bonus %q already claimed", ErrConflict, bonusID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check claim log: %w", err)
	}

	if !rule.Eligible(*snap) {
		return nil, fmt.Errorf("%w: bonus %q requirements not met", ErrValidation, bonusID)
	}

	claim := models.BonusClaim{
		UserID:    userID,
		BonusID:   rule.ID,
		Name:      rule.Name,
		Amount:    rule.Amount,
		ClaimedAt: time.Now(),
	}
	if err := s.db.Create(&claim).Error; err != nil {
		// The unique (user_id, bonus_id) index is the backstop for
		// concurrent double-claims.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: bonus %q already claimed", ErrConflict, bonusID)
		}
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}

	if err := creditBalance(s.db, userID, rule.Amount); err != nil {
		return nil, fmt.Errorf("failed to credit bonus: %w", err)
	}
	if err := addProfit(s.db, userID, rule.Amount, 0); err != nil {
		return nil, err
	}

	user, err := loadUser(s.db, userID)
	if err != nil {
		return nil, err
	}
	var stats models.ProfitStats
	if err := s.db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to load profit stats: %w", err)
	}

	if err := writeAudit(s.db, "BONUS_CLAIM", "USER", &userID, models.JSONB{
		"bonus_id":          rule.ID,
		"amount":            rule.Amount.String(),
		"resulting_balance": user.Balance.String(),
	}); err != nil {
		log.Printf("Warning: failed to write bonus audit for user %d: %v", userID, err)
	}

	log.Printf("Bonus claimed: user %d bonus %s amount %s", userID, rule.ID, rule.Amount)
	return &ClaimResult{NewBalance: user.Balance, TotalEarned: stats.TotalEarned}, nil
}

func findBonus(bonusID string) *BonusRule {
	for i := range BonusCatalog {
		if BonusCatalog[i].ID == bonusID {
			return &BonusCatalog[i]
		}
	}
	return nil
}

// snapshot gathers the ledger/graph/product statistics the predicates read.
func (s *BonusService) snapshot(userID uint) (*BonusSnapshot, error) {
	user, err := loadUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	var direct int64
	if err := s.db.Model(&models.ReferralEdge{}).Where("parent_id = ?", userID).Count(&direct).Error; err != nil {
		return nil, fmt.Errorf("failed to count direct referrals: %w", err)
	}
	var indirect int64
	if err := s.db.Model(&models.ReferralEdge{}).
		Where("parent_id IN (SELECT child_id FROM referral_edges WHERE parent_id = ?)", userID).
		Count(&indirect).Error; err != nil {
		return nil, fmt.Errorf("failed to count indirect referrals: %w", err)
	}

	totalEarned := decimal.Zero
	var stats models.ProfitStats
	if err := s.db.Where("user_id = ?", userID).First(&stats).Error; err == nil {
		totalEarned = stats.TotalEarned
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load profit stats: %w", err)
	}

	return &BonusSnapshot{
		VIPTier:           user.VIPTier,
		DirectReferrals:   direct,
		IndirectReferrals: indirect,
		Submissions:       int64(user.SubmissionCount),
		Balance:           user.Balance,
		TotalEarned:       totalEarned,
	}, nil
}

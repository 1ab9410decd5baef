package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"referral-platform/internal/models"
)

// Profile bundles the ledger record with its earnings aggregate.
type Profile struct {
	User    *models.User        `json:"user"`
	Profits *models.ProfitStats `json:"profits"`
}

// UserService handles ledger and referral-graph reads.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	return loadUser(s.db, userID)
}

// GetProfile returns the user's ledger record and earnings aggregate. A
// user who has never earned gets a zero-valued aggregate.
func (s *UserService) GetProfile(userID uint) (*Profile, error) {
	user, err := loadUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	var stats models.ProfitStats
	if err := s.db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load profit stats: %w", err)
		}
		stats = models.ProfitStats{UserID: userID, ByLevel: models.DecimalMap{}}
	}

	return &Profile{User: user, Profits: &stats}, nil
}

// GetDirectReferrals retrieves the user's outgoing referral edges with the
// recruited users preloaded.
func (s *UserService) GetDirectReferrals(userID uint) ([]models.ReferralEdge, error) {
	var edges []models.ReferralEdge
	if err := s.db.Where("parent_id = ?", userID).Preload("Child").Order("created_at ASC").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

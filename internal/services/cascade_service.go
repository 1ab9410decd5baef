package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"referral-platform/internal/models"
)

// maxCascadeDepth caps the upward walk per submission.
const maxCascadeDepth = 10

// moneyPlaces is the rounding applied to every commission amount. The walk
// stops early once a level's rounded commission reaches zero.
const moneyPlaces int32 = 2

var (
	submitterShare = decimal.NewFromFloat(0.8)
	levelOneShare  = decimal.NewFromFloat(0.2)
	levelDecay     = decimal.NewFromFloat(0.1)
)

// CascadeService distributes the value of a product submission: the
// submitter keeps 80%, and a geometrically decaying commission walks up the
// referral chain crediting each ancestor.
type CascadeService struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewCascadeService(db *gorm.DB) *CascadeService {
	return &CascadeService{db: db}
}

// Distribute credits the submitter and cascades commissions to ancestors,
// then persists an immutable submission record with the full cascade log.
// Ancestor credits already applied are NOT rolled back when a later step
// fails; the partial cascade is logged and the error surfaced.
func (s *CascadeService) Distribute(userID uint, productName string, productValue decimal.Decimal) (*models.ProductSubmission, error) {
	if !productValue.IsPositive() {
		return nil, fmt.Errorf("%w: product value must be positive", ErrValidation)
	}
	if productName == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := loadUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	userEarned := productValue.Mul(submitterShare).Round(moneyPlaces)

	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"balance":          gorm.Expr("balance + ?", userEarned),
			"submission_count": gorm.Expr("submission_count + 1"),
		}).Error; err != nil {
		return nil, fmt.Errorf("failed to credit submitter %d: %w", user.ID, err)
	}
	if err := addProfit(s.db, user.ID, userEarned, 0); err != nil {
		return nil, err
	}

	cascade, err := s.walkAncestors(user, productValue, now)
	if err != nil {
		log.Printf("Cascade aborted for user %d after %d level(s): %v", user.ID, len(cascade), err)
		return nil, err
	}

	submission := models.ProductSubmission{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		ProductName:  productName,
		ProductValue: productValue,
		UserEarned:   userEarned,
		Cascade:      cascade,
		SubmittedAt:  now,
	}
	if err := s.db.Create(&submission).Error; err != nil {
		return nil, fmt.Errorf("failed to record submission for user %d: %w", user.ID, err)
	}

	log.Printf("Submission %s: user %d earned %s, %d ancestor(s) credited",
		submission.ID, user.ID, userEarned, len(cascade))
	return &submission, nil
}

// walkAncestors performs the upward commission walk. A missing parent record
// terminates the loop silently; a broken chain is not an error.
func (s *CascadeService) walkAncestors(user *models.User, productValue decimal.Decimal, now time.Time) (models.CascadeLog, error) {
	cascade := models.CascadeLog{}
	commission := productValue.Mul(levelOneShare).Round(moneyPlaces)
	currentParent := user.ParentUserID

	for level := 1; currentParent != nil && level <= maxCascadeDepth && commission.IsPositive(); level++ {
		var parent models.User
		if err := s.db.First(&parent, *currentParent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return cascade, fmt.Errorf("cascade failed loading ancestor %d at level %d: %w", *currentParent, level, err)
		}

		if err := s.db.Model(&models.User{}).Where("id = ?", parent.ID).
			Updates(map[string]interface{}{
				"balance":                    gorm.Expr("balance + ?", commission),
				"total_profit_from_children": gorm.Expr("total_profit_from_children + ?", commission),
			}).Error; err != nil {
			return cascade, fmt.Errorf("cascade failed crediting ancestor %d at level %d: %w", parent.ID, level, err)
		}
		if err := addProfit(s.db, parent.ID, commission, level); err != nil {
			return cascade, fmt.Errorf("cascade failed at level %d: %w", level, err)
		}

		if level == 1 {
			if err := s.db.Model(&models.ReferralEdge{}).
				Where("parent_id = ? AND child_id = ?", parent.ID, user.ID).
				Updates(map[string]interface{}{
					"total_shared_profit": gorm.Expr("total_shared_profit + ?", commission),
					"last_product_at":     now,
				}).Error; err != nil {
				return cascade, fmt.Errorf("cascade failed updating referral edge %d->%d: %w", parent.ID, user.ID, err)
			}
		}

		cascade = append(cascade, models.CascadeEntry{Level: level, ParentID: parent.ID, Amount: commission})

		currentParent = parent.ParentUserID
		commission = commission.Mul(levelDecay).Round(moneyPlaces)
	}

	return cascade, nil
}

// GetUserSubmissions returns a user's submission history, newest first.
func (s *CascadeService) GetUserSubmissions(userID uint) ([]models.ProductSubmission, error) {
	var submissions []models.ProductSubmission
	if err := s.db.Where("user_id = ?", userID).Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"referral-platform/internal/models"
)

const defaultDenialReason = "Not specified"

// WithdrawalService governs the request -> approved|denied state machine.
// Status transitions use a compare-and-set on the status column so that
// concurrent approvals cannot both succeed.
type WithdrawalService struct {
	db       *gorm.DB
	notifier Notifier
	mu       sync.Mutex
}

func NewWithdrawalService(db *gorm.DB, notifier Notifier) *WithdrawalService {
	return &WithdrawalService{db: db, notifier: notifier}
}

// Request validates the amount and withdrawal password against the user's
// record and creates a PENDING request. Sufficiency is checked here, not at
// approval time.
func (s *WithdrawalService) Request(userID uint, amount decimal.Decimal, withdrawalPassword string) (*models.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := loadUser(s.db, userID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.WithdrawalPassword), []byte(withdrawalPassword)) != nil {
		return nil, fmt.Errorf("%w: withdrawal password mismatch", ErrUnauthorized)
	}
	if amount.GreaterThan(user.Balance) {
		return nil, fmt.Errorf("%w: amount %s exceeds balance %s", ErrValidation, amount, user.Balance)
	}

	request := models.WithdrawalRequest{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Amount:      amount,
		Status:      models.WithdrawalPending,
		RequestedAt: time.Now(),
	}
	if err := s.db.Create(&request).Error; err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	notifyAsync(s.notifier, user.Email, "Withdrawal requested",
		fmt.Sprintf("Your withdrawal request for %s has been received and is pending review.", amount))

	log.Printf("Withdrawal requested: %s user %d amount %s", request.ID, user.ID, amount)
	return &request, nil
}

// Approve transitions a pending request to APPROVED and debits the user's
// balance by the approved amount. The debit applies regardless of the
// current balance sign; a resulting negative balance is logged.
func (s *WithdrawalService) Approve(withdrawalID string) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.loadRequest(withdrawalID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := s.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", request.ID, models.WithdrawalPending).
		Updates(map[string]interface{}{
			"status":      models.WithdrawalApproved,
			"approved_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to approve withdrawal %s: %w", request.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: withdrawal %s is not pending", ErrConflict, request.ID)
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", request.UserID).
		Update("balance", gorm.Expr("balance - ?", request.Amount)).Error; err != nil {
		return nil, fmt.Errorf("failed to debit user %d for withdrawal %s: %w", request.UserID, request.ID, err)
	}

	user, err := loadUser(s.db, request.UserID)
	if err != nil {
		log.Printf("Warning: failed to reload user %d after approving withdrawal %s: %v", request.UserID, request.ID, err)
	} else {
		if user.Balance.IsNegative() {
			log.Printf("Warning: withdrawal %s drove user %d balance negative (%s)", request.ID, user.ID, user.Balance)
		}
		notifyAsync(s.notifier, user.Email, "Withdrawal approved",
			fmt.Sprintf("Your withdrawal of %s has been approved.", request.Amount))
	}

	log.Printf("Withdrawal approved: %s user %d amount %s", request.ID, request.UserID, request.Amount)
	return s.loadRequest(request.ID)
}

// Deny transitions a pending request to DENIED, recording the reason. The
// balance is unaffected.
func (s *WithdrawalService) Deny(withdrawalID, reason string) (*models.WithdrawalRequest, error) {
	if reason == "" {
		reason = defaultDenialReason
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	request, err := s.loadRequest(withdrawalID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := s.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", request.ID, models.WithdrawalPending).
		Updates(map[string]interface{}{
			"status":        models.WithdrawalDenied,
			"denial_reason": reason,
			"denied_at":     now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to deny withdrawal %s: %w", request.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: withdrawal %s is not pending", ErrConflict, request.ID)
	}

	if user, err := loadUser(s.db, request.UserID); err == nil {
		notifyAsync(s.notifier, user.Email, "Withdrawal denied",
			fmt.Sprintf("Your withdrawal of %s was denied: %s", request.Amount, reason))
	}

	log.Printf("Withdrawal denied: %s user %d reason %q", request.ID, request.UserID, reason)
	return s.loadRequest(request.ID)
}

// ListByStatus returns the queue for one lifecycle state, oldest first.
func (s *WithdrawalService) ListByStatus(status string) ([]models.WithdrawalRequest, error) {
	switch status {
	case models.WithdrawalPending, models.WithdrawalApproved, models.WithdrawalDenied:
	default:
		return nil, fmt.Errorf("%w: unknown withdrawal status %q", ErrValidation, status)
	}
	var requests []models.WithdrawalRequest
	if err := s.db.Where("status = ?", status).Order("requested_at ASC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// GetUserWithdrawals returns a user's withdrawal history, newest first.
func (s *WithdrawalService) GetUserWithdrawals(userID uint) ([]models.WithdrawalRequest, error) {
	var requests []models.WithdrawalRequest
	if err := s.db.Where("user_id = ?", userID).Order("requested_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *WithdrawalService) loadRequest(withdrawalID string) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := s.db.Where("id = ?", withdrawalID).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: withdrawal %s", ErrNotFound, withdrawalID)
		}
		return nil, fmt.Errorf("failed to load withdrawal %s: %w", withdrawalID, err)
	}
	return &request, nil
}

package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"referral-platform/internal/models"
)

const testWithdrawalPassword = "wd-secret"

func createWithdrawer(t *testing.T, db *gorm.DB, nickname string, balance decimal.Decimal) *models.User {
	t.Helper()
	u := createUser(t, db, nickname, balance, nil)
	hash, err := bcrypt.GenerateFromPassword([]byte(testWithdrawalPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash withdrawal password: %v", err)
	}
	if err := db.Model(u).Update("withdrawal_password", string(hash)).Error; err != nil {
		t.Fatalf("failed to set withdrawal password: %v", err)
	}
	return u
}

func TestRequestCreatesPending(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	u := createWithdrawer(t, db, "wd-alice", decimal.NewFromInt(500))

	request, err := service.Request(u.ID, decimal.NewFromInt(200), testWithdrawalPassword)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if request.Status != models.WithdrawalPending {
		t.Errorf("expected status PENDING, got %s", request.Status)
	}

	// Requesting does not move money.
	u = reloadUser(t, db, u.ID)
	if !u.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected balance unchanged at 500, got %s", u.Balance)
	}
}

func TestRequestValidation(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	u := createWithdrawer(t, db, "wd-bob", decimal.NewFromInt(100))

	if _, err := service.Request(u.ID, decimal.Zero, testWithdrawalPassword); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}
	if _, err := service.Request(u.ID, decimal.NewFromInt(101), testWithdrawalPassword); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for amount above balance, got %v", err)
	}
	if _, err := service.Request(u.ID, decimal.NewFromInt(50), "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for bad password, got %v", err)
	}
}

func TestApproveDebitsBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	u := createWithdrawer(t, db, "wd-carol", decimal.NewFromInt(500))
	request, err := service.Request(u.ID, decimal.NewFromInt(200), testWithdrawalPassword)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	approved, err := service.Approve(request.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != models.WithdrawalApproved {
		t.Errorf("expected status APPROVED, got %s", approved.Status)
	}
	if approved.ApprovedAt == nil {
		t.Error("expected approved_at to be set")
	}

	u = reloadUser(t, db, u.ID)
	if !u.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected balance 300, got %s", u.Balance)
	}
}

func TestDenyLeavesBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	u := createWithdrawer(t, db, "wd-dave", decimal.NewFromInt(500))
	request, err := service.Request(u.ID, decimal.NewFromInt(200), testWithdrawalPassword)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	denied, err := service.Deny(request.ID, "")
	if err != nil {
		t.Fatalf("Deny failed: %v", err)
	}
	if denied.Status != models.WithdrawalDenied {
		t.Errorf("expected status DENIED, got %s", denied.Status)
	}
	if denied.DenialReason != defaultDenialReason {
		t.Errorf("expected default denial reason %q, got %q", defaultDenialReason, denied.DenialReason)
	}
	if denied.DeniedAt == nil {
		t.Error("expected denied_at to be set")
	}

	u = reloadUser(t, db, u.ID)
	if !u.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected balance unchanged at 500, got %s", u.Balance)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	u := createWithdrawer(t, db, "wd-erin", decimal.NewFromInt(500))
	request, err := service.Request(u.ID, decimal.NewFromInt(100), testWithdrawalPassword)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if _, err := service.Approve(request.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if _, err := service.Approve(request.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on double approve, got %v", err)
	}
	if _, err := service.Deny(request.ID, "too late"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on deny after approve, got %v", err)
	}

	// The double attempts must not debit again.
	u = reloadUser(t, db, u.ID)
	if !u.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected balance 400, got %s", u.Balance)
	}
}

func TestApproveSurvivesMissingUser(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	u := createWithdrawer(t, db, "wd-ghost", decimal.NewFromInt(500))
	request, err := service.Request(u.ID, decimal.NewFromInt(100), testWithdrawalPassword)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	// The user disappears before the admin acts; approval still completes,
	// only the post-approval reload is skipped.
	if err := db.Delete(&models.User{}, u.ID).Error; err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}

	approved, err := service.Approve(request.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != models.WithdrawalApproved {
		t.Errorf("expected status APPROVED, got %s", approved.Status)
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	if _, err := service.Approve("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListByStatus(t *testing.T) {
	db := setupTestDB(t)
	service := NewWithdrawalService(db, nil)

	u := createWithdrawer(t, db, "wd-frank", decimal.NewFromInt(1000))
	first, _ := service.Request(u.ID, decimal.NewFromInt(100), testWithdrawalPassword)
	second, _ := service.Request(u.ID, decimal.NewFromInt(200), testWithdrawalPassword)
	if _, err := service.Approve(first.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	pending, err := service.ListByStatus(models.WithdrawalPending)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Errorf("expected only the second request pending, got %d entries", len(pending))
	}

	approved, err := service.ListByStatus(models.WithdrawalApproved)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != first.ID {
		t.Errorf("expected only the first request approved, got %d entries", len(approved))
	}

	if _, err := service.ListByStatus("BOGUS"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown status, got %v", err)
	}
}

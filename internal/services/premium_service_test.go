package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"referral-platform/internal/models"
)

func TestAssignWithinBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-rich", decimal.NewFromInt(500), nil)

	result, err := service.Assign(u.ID, decimal.NewFromInt(200), 1)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if result.Frozen {
		t.Error("expected account not frozen")
	}

	u = reloadUser(t, db, u.ID)
	if !u.Balance.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected balance 700, got %s", u.Balance)
	}
	if u.AccountFrozen {
		t.Error("expected account_frozen false")
	}
	if u.SubmissionCount != 1 {
		t.Errorf("expected submission count 1, got %d", u.SubmissionCount)
	}
}

func TestAssignExceedingBalanceFreezes(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-poor", decimal.NewFromInt(100), nil)

	result, err := service.Assign(u.ID, decimal.NewFromInt(300), 2)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if !result.Frozen {
		t.Error("expected account frozen")
	}

	u = reloadUser(t, db, u.ID)
	if !u.Balance.Equal(decimal.NewFromInt(-200)) {
		t.Errorf("expected balance -200, got %s", u.Balance)
	}
	if !u.AccountFrozen {
		t.Error("expected account_frozen true")
	}
	if !u.FreezeAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected freeze amount 300, got %s", u.FreezeAmount)
	}
}

func TestAssignOverwritesPrevious(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-repeat", decimal.NewFromInt(1000), nil)

	if _, err := service.Assign(u.ID, decimal.NewFromInt(100), 1); err != nil {
		t.Fatalf("first Assign failed: %v", err)
	}
	if _, err := service.Assign(u.ID, decimal.NewFromInt(250), 3); err != nil {
		t.Fatalf("second Assign failed: %v", err)
	}

	var count int64
	db.Model(&models.PremiumAssignment{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected a single assignment row, got %d", count)
	}

	var assignment models.PremiumAssignment
	db.Where("user_id = ?", u.ID).First(&assignment)
	if !assignment.Amount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected overwritten amount 250, got %s", assignment.Amount)
	}
	if assignment.Position != 3 {
		t.Errorf("expected overwritten position 3, got %d", assignment.Position)
	}
}

func TestUnfreezeReleasesAccount(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	// The documented example: balance -50, freeze 200 -> 50 + 200 + 150 = 400.
	u := createUser(t, db, "prem-frozen", decimal.NewFromInt(-50), nil)
	db.Model(u).Updates(map[string]interface{}{
		"account_frozen": true,
		"freeze_amount":  decimal.NewFromInt(200),
	})

	updated, err := service.Unfreeze(u.ID)
	if err != nil {
		t.Fatalf("Unfreeze failed: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected balance 400, got %s", updated.Balance)
	}
	if updated.AccountFrozen {
		t.Error("expected account_frozen false")
	}
	if !updated.FreezeAmount.IsZero() {
		t.Errorf("expected freeze amount 0, got %s", updated.FreezeAmount)
	}
}

func TestUnfreezeUsesLatestBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-credited", decimal.NewFromInt(100), nil)
	if _, err := service.Assign(u.ID, decimal.NewFromInt(300), 1); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	// A cascade credit lands while the account is frozen; the unfreeze
	// formula must be computed from the balance as it stands at the write.
	if err := creditBalance(db, u.ID, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("creditBalance failed: %v", err)
	}

	updated, err := service.Unfreeze(u.ID)
	if err != nil {
		t.Fatalf("Unfreeze failed: %v", err)
	}
	// abs(-150) + 300 + 150.
	if !updated.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected balance 600, got %s", updated.Balance)
	}
	if updated.AccountFrozen {
		t.Error("expected account_frozen false")
	}
}

func TestUnfreezeNotFrozenIsNoop(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-liquid", decimal.NewFromInt(75), nil)

	updated, err := service.Unfreeze(u.ID)
	if err != nil {
		t.Fatalf("Unfreeze failed: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(75)) {
		t.Errorf("expected balance unchanged at 75, got %s", updated.Balance)
	}
}

func TestRevokeClearsFreezeAndAssignment(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-revoked", decimal.NewFromInt(50), nil)
	if _, err := service.Assign(u.ID, decimal.NewFromInt(500), 1); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	updated, err := service.Revoke(u.ID)
	if err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if updated.AccountFrozen {
		t.Error("expected account_frozen false after revoke")
	}
	if !updated.FreezeAmount.IsZero() {
		t.Errorf("expected freeze amount 0, got %s", updated.FreezeAmount)
	}
	// Revoke leaves the balance as the freeze left it.
	if !updated.Balance.Equal(decimal.NewFromInt(-450)) {
		t.Errorf("expected balance -450, got %s", updated.Balance)
	}

	var count int64
	db.Model(&models.PremiumAssignment{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected assignment deleted, found %d", count)
	}
}

func TestRevokeWithoutAssignment(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-none", decimal.Zero, nil)

	if _, err := service.Revoke(u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	service := NewPremiumService(db)

	u := createUser(t, db, "prem-invalid", decimal.Zero, nil)

	if _, err := service.Assign(u.ID, decimal.Zero, 1); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}
	if _, err := service.Assign(u.ID, decimal.NewFromInt(10), 0); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for non-positive position, got %v", err)
	}
}

package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"referral-platform/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// :memory: is unique per connection unless using cache=shared, and gorm
	// pools connections, so the shared-cache DSN keeps every handle on the
	// same database.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ReferralEdge{},
		&models.ProfitStats{},
		&models.ProductSubmission{},
		&models.WithdrawalRequest{},
		&models.PremiumAssignment{},
		&models.BonusClaim{},
		&models.AuditLog{},
		&models.PlatformStats{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// The shared-cache DB survives across tests in the package; start clean.
	for _, table := range []string{
		"users", "referral_edges", "profit_stats", "product_submissions",
		"withdrawal_requests", "premium_assignments", "bonus_claims",
		"audit_logs", "platform_stats",
	} {
		db.Exec("DELETE FROM " + table)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, nickname string, balance decimal.Decimal, parentID *uint) *models.User {
	t.Helper()
	user := &models.User{
		Nickname:   nickname,
		InviteCode: "code-" + nickname,
		Balance:    balance,
		VIPTier:    models.VIPNormal,
	}
	user.ParentUserID = parentID
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", nickname, err)
	}
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("failed to reload user %d: %v", id, err)
	}
	return &user
}

func loadStats(t *testing.T, db *gorm.DB, userID uint) *models.ProfitStats {
	t.Helper()
	var stats models.ProfitStats
	if err := db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		t.Fatalf("failed to load profit stats for user %d: %v", userID, err)
	}
	return &stats
}

func TestDistributeNoParent(t *testing.T) {
	db := setupTestDB(t)
	service := NewCascadeService(db)

	a := createUser(t, db, "alice", decimal.Zero, nil)

	submission, err := service.Distribute(a.ID, "Gadget", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if !submission.UserEarned.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected user earned 800, got %s", submission.UserEarned)
	}
	if len(submission.Cascade) != 0 {
		t.Errorf("expected empty cascade, got %d entries", len(submission.Cascade))
	}

	a = reloadUser(t, db, a.ID)
	if !a.Balance.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected balance 800, got %s", a.Balance)
	}
	if a.SubmissionCount != 1 {
		t.Errorf("expected submission count 1, got %d", a.SubmissionCount)
	}

	stats := loadStats(t, db, a.ID)
	if !stats.TotalEarned.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected total earned 800, got %s", stats.TotalEarned)
	}
}

func TestDistributeSingleLevel(t *testing.T) {
	db := setupTestDB(t)
	service := NewCascadeService(db)

	a := createUser(t, db, "alice", decimal.Zero, nil)
	b := createUser(t, db, "bob", decimal.Zero, &a.ID)
	db.Create(&models.ReferralEdge{ParentID: a.ID, ChildID: b.ID})

	submission, err := service.Distribute(b.ID, "Widget", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if !submission.UserEarned.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected user earned 400, got %s", submission.UserEarned)
	}
	if len(submission.Cascade) != 1 {
		t.Fatalf("expected 1 cascade entry, got %d", len(submission.Cascade))
	}
	if !submission.Cascade[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected level-1 commission 100, got %s", submission.Cascade[0].Amount)
	}

	a = reloadUser(t, db, a.ID)
	if !a.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected parent balance 100, got %s", a.Balance)
	}
	if !a.TotalProfitFromChildren.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total profit from children 100, got %s", a.TotalProfitFromChildren)
	}

	var edge models.ReferralEdge
	if err := db.Where("parent_id = ? AND child_id = ?", a.ID, b.ID).First(&edge).Error; err != nil {
		t.Fatalf("failed to load edge: %v", err)
	}
	if !edge.TotalSharedProfit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected edge shared profit 100, got %s", edge.TotalSharedProfit)
	}
	if edge.LastProductAt == nil {
		t.Error("expected last_product_at to be set")
	}
}

func TestDistributeThreeLevelChain(t *testing.T) {
	db := setupTestDB(t)
	service := NewCascadeService(db)

	a := createUser(t, db, "alice", decimal.Zero, nil)
	b := createUser(t, db, "bob", decimal.Zero, &a.ID)
	c := createUser(t, db, "carol", decimal.Zero, &b.ID)
	db.Create(&models.ReferralEdge{ParentID: a.ID, ChildID: b.ID})
	db.Create(&models.ReferralEdge{ParentID: b.ID, ChildID: c.ID})

	submission, err := service.Distribute(c.ID, "Gizmo", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if len(submission.Cascade) != 2 {
		t.Fatalf("expected 2 cascade entries, got %d", len(submission.Cascade))
	}

	b = reloadUser(t, db, b.ID)
	if !b.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected B balance 200, got %s", b.Balance)
	}
	a = reloadUser(t, db, a.ID)
	if !a.Balance.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected A balance 20, got %s", a.Balance)
	}

	bStats := loadStats(t, db, b.ID)
	if !bStats.FromDirectChildren.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected B direct-children profit 200, got %s", bStats.FromDirectChildren)
	}
	aStats := loadStats(t, db, a.ID)
	if !aStats.FromIndirectReferrals.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected A indirect profit 20, got %s", aStats.FromIndirectReferrals)
	}
	if !aStats.ByLevel["2"].Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected A by-level[2] 20, got %s", aStats.ByLevel["2"])
	}
}

func TestDistributeDepthLimit(t *testing.T) {
	db := setupTestDB(t)
	service := NewCascadeService(db)

	// 12-user chain: submitter has 11 ancestors; only 10 get credited.
	var parentID *uint
	users := make([]*models.User, 0, 12)
	for i := 0; i < 12; i++ {
		u := createUser(t, db, "chain-"+string(rune('a'+i)), decimal.Zero, parentID)
		users = append(users, u)
		parentID = &u.ID
	}
	submitter := users[len(users)-1]

	// Value large enough that the level-10 commission still rounds above zero.
	value := decimal.NewFromInt(100000000)
	submission, err := service.Distribute(submitter.ID, "Bulk", value)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if len(submission.Cascade) != 10 {
		t.Fatalf("expected 10 cascade entries, got %d", len(submission.Cascade))
	}

	expected := []string{
		"20000000", "2000000", "200000", "20000", "2000",
		"200", "20", "2", "0.2", "0.02",
	}
	for i, want := range expected {
		wantDec, _ := decimal.NewFromString(want)
		if !submission.Cascade[i].Amount.Equal(wantDec) {
			t.Errorf("level %d: expected commission %s, got %s", i+1, want, submission.Cascade[i].Amount)
		}
		if submission.Cascade[i].Level != i+1 {
			t.Errorf("expected level %d, got %d", i+1, submission.Cascade[i].Level)
		}
	}

	// The 11th ancestor gets nothing.
	top := reloadUser(t, db, users[0].ID)
	if !top.Balance.IsZero() {
		t.Errorf("expected top-of-chain balance 0, got %s", top.Balance)
	}
}

func TestDistributeStopsWhenCommissionRoundsToZero(t *testing.T) {
	db := setupTestDB(t)
	service := NewCascadeService(db)

	var parentID *uint
	for i := 0; i < 7; i++ {
		u := createUser(t, db, "round-"+string(rune('a'+i)), decimal.Zero, parentID)
		parentID = &u.ID
	}
	submitter := createUser(t, db, "round-submitter", decimal.Zero, parentID)

	// 1000 decays to 0.02 at level 5; level 6 rounds to zero.
	submission, err := service.Distribute(submitter.ID, "Trinket", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	if len(submission.Cascade) != 5 {
		t.Errorf("expected cascade to stop at 5 levels, got %d", len(submission.Cascade))
	}
}

func TestDistributeBrokenChain(t *testing.T) {
	db := setupTestDB(t)
	service := NewCascadeService(db)

	missing := uint(99999)
	b := createUser(t, db, "orphan", decimal.Zero, &missing)

	submission, err := service.Distribute(b.ID, "Widget", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Distribute failed on broken chain: %v", err)
	}
	if len(submission.Cascade) != 0 {
		t.Errorf("expected no cascade entries on broken chain, got %d", len(submission.Cascade))
	}

	b = reloadUser(t, db, b.ID)
	if !b.Balance.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected balance 80, got %s", b.Balance)
	}
}

func TestDistributeRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	service := NewCascadeService(db)

	a := createUser(t, db, "alice", decimal.Zero, nil)

	if _, err := service.Distribute(a.ID, "Gadget", decimal.Zero); err == nil {
		t.Error("expected error for zero product value")
	}
	if _, err := service.Distribute(a.ID, "Gadget", decimal.NewFromInt(-5)); err == nil {
		t.Error("expected error for negative product value")
	}
	if _, err := service.Distribute(a.ID, "", decimal.NewFromInt(10)); err == nil {
		t.Error("expected error for missing product name")
	}
}

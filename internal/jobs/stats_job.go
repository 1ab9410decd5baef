package jobs

import (
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"referral-platform/internal/models"
)

// StatsJob periodically snapshots platform-wide counters into the daily
// platform_stats row.
type StatsJob struct {
	db *gorm.DB
}

func NewStatsJob(db *gorm.DB) *StatsJob {
	return &StatsJob{db: db}
}

// Start begins the periodic snapshot job
func (j *StatsJob) Start(interval time.Duration) {
	go func() {
		// Run immediately on start
		if err := j.Snapshot(time.Now()); err != nil {
			log.Printf("Initial stats snapshot error: %v", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if err := j.Snapshot(time.Now()); err != nil {
				log.Printf("Stats snapshot error: %v", err)
			}
		}
	}()
}

// Snapshot recomputes and upserts the stats row for the given day.
func (j *StatsJob) Snapshot(now time.Time) error {
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var totalUsers, frozenUsers, totalSubmissions, pendingWithdrawals int64
	j.db.Model(&models.User{}).Count(&totalUsers)
	j.db.Model(&models.User{}).Where("account_frozen = ?", true).Count(&frozenUsers)
	j.db.Model(&models.ProductSubmission{}).Count(&totalSubmissions)
	j.db.Model(&models.WithdrawalRequest{}).Where("status = ?", models.WithdrawalPending).Count(&pendingWithdrawals)

	totalVolume := decimal.Zero
	row := j.db.Model(&models.ProductSubmission{}).Select("COALESCE(SUM(product_value), 0)").Row()
	if err := row.Scan(&totalVolume); err != nil {
		log.Printf("Stats snapshot: failed to sum product volume: %v", err)
	}

	stats := models.PlatformStats{
		Date:               date,
		TotalUsers:         int(totalUsers),
		FrozenUsers:        int(frozenUsers),
		TotalSubmissions:   int(totalSubmissions),
		TotalVolume:        totalVolume,
		PendingWithdrawals: int(pendingWithdrawals),
	}

	var existing models.PlatformStats
	err := j.db.Where("date = ?", date).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return j.db.Create(&stats).Error
	}
	if err != nil {
		return err
	}
	stats.ID = existing.ID
	return j.db.Save(&stats).Error
}

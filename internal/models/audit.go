package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, &j)
}

// DecimalMap is a JSON column mapping string keys to decimal amounts,
// used for the per-level commission accumulator.
type DecimalMap map[string]decimal.Decimal

func (m DecimalMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *DecimalMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, &m)
}

// AuditLog records ledger-affecting administrative actions for audit trail
type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Action       string    `gorm:"size:100;not null;index" json:"action"`
	ResourceType string    `gorm:"size:50" json:"resource_type"`
	ResourceID   *uint     `json:"resource_id"`
	Details      JSONB     `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// PlatformStats stores daily platform statistics
type PlatformStats struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Date               time.Time       `gorm:"uniqueIndex;not null" json:"date"`
	TotalUsers         int             `gorm:"default:0" json:"total_users"`
	FrozenUsers        int             `gorm:"default:0" json:"frozen_users"`
	TotalSubmissions   int             `gorm:"default:0" json:"total_submissions"`
	TotalVolume        decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"total_volume"`
	PendingWithdrawals int             `gorm:"default:0" json:"pending_withdrawals"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (PlatformStats) TableName() string {
	return "platform_stats"
}

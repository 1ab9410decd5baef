package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CascadeEntry is one ancestor credit from a product submission.
type CascadeEntry struct {
	Level    int             `json:"level"`
	ParentID uint            `json:"parent_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// CascadeLog is the ordered list of ancestor credits, stored as JSON.
type CascadeLog []CascadeEntry

func (l CascadeLog) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(CascadeLog{})
	}
	return json.Marshal(l)
}

func (l *CascadeLog) Scan(value interface{}) error {
	if value == nil {
		*l = nil
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
	return json.Unmarshal(bytes, &l)
}

// ProductSubmission is the immutable record of one value-generating event,
// including the full commission cascade for audit and analytics.
type ProductSubmission struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProductName  string          `gorm:"size:255;not null" json:"product_name"`
	ProductValue decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"product_value"`
	UserEarned   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"user_earned"`
	Cascade      CascadeLog      `gorm:"type:jsonb" json:"cascade"`
	SubmittedAt  time.Time       `gorm:"index" json:"submitted_at"`
}

func (ProductSubmission) TableName() string {
	return "product_submissions"
}

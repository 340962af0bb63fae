package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is one sales pursuit, derived by joining requests, quotes and
// jobs that share a client+property identity. Rows are fully recomputed from
// the synced tables after every run; nothing here is authored by hand.
//
// Cycle metrics are pointers on purpose: a missing input date must surface as
// NULL downstream, not as a zero-day cycle.
type Opportunity struct {
	IdentityKey     string `gorm:"primaryKey;type:text"`
	ClientName      string `gorm:"type:text;not null;index"`
	PropertyAddress string `gorm:"type:text"`

	RequestedAt *time.Time `gorm:"type:timestamptz"`
	QuoteSentAt *time.Time `gorm:"type:timestamptz"`
	JobClosedAt *time.Time `gorm:"type:timestamptz"`

	DaysToQuote        *int `gorm:""`
	DaysToClose        *int `gorm:""`
	DaysRequestToClose *int `gorm:""`

	QuoteTotal *decimal.Decimal `gorm:"type:numeric(30,10)"`
	JobTotal   *decimal.Decimal `gorm:"type:numeric(30,10)"`

	RequestCount int `gorm:"not null;default:0"`
	QuoteCount   int `gorm:"not null;default:0"`
	JobCount     int `gorm:"not null;default:0"`

	Outcome    string    `gorm:"type:varchar(20);not null;index"`
	ComputedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}

// Outcome values.
const (
	OutcomeWon     = "won"
	OutcomeLost    = "lost"
	OutcomePending = "pending"
)

package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncRun is the single bookkeeping row per account describing the latest
// orchestrator execution. It is overwritten every run; there is no history.
type SyncRun struct {
	AccountID    string         `gorm:"primaryKey;type:text"`
	LastRunAt    time.Time      `gorm:"type:timestamptz;not null"`
	DurationMS   int64          `gorm:"not null;default:0"`
	Status       string         `gorm:"type:varchar(20);not null"`
	RequestCount int            `gorm:"not null;default:0"`
	QuoteCount   int            `gorm:"not null;default:0"`
	JobCount     int            `gorm:"not null;default:0"`
	PagesFetched int            `gorm:"not null;default:0"`
	ErrorCount   int            `gorm:"not null;default:0"`
	LastError    *string        `gorm:"type:text"`
	StatsJSON    datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

// SyncRun statuses.
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

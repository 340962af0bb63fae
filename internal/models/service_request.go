package models

import (
	"time"

	"gorm.io/datatypes"
)

// ServiceRequest is a synced assessment request. Normalized columns cover the
// fields the aggregator needs; RawJSON keeps the full remote payload so new
// columns can be derived later without re-fetching.
type ServiceRequest struct {
	ID              string         `gorm:"primaryKey;type:text"`
	ClientName      string         `gorm:"type:text;index"`
	PropertyAddress string         `gorm:"type:text"`
	Title           string         `gorm:"type:text"`
	Status          string         `gorm:"type:text;index"`
	RequestedAt     *time.Time     `gorm:"type:timestamptz;index"`
	CompletedAt     *time.Time     `gorm:"type:timestamptz"`
	LastSyncedAt    time.Time      `gorm:"type:timestamptz;not null"`
	RawJSON         datatypes.JSON `gorm:"type:jsonb;not null"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Job struct {
	ID              string           `gorm:"primaryKey;type:text"`
	JobNumber       *string          `gorm:"type:text;index"`
	ClientName      string           `gorm:"type:text;index"`
	PropertyAddress string           `gorm:"type:text"`
	Title           string           `gorm:"type:text"`
	Status          string           `gorm:"type:text;index"`
	Total           *decimal.Decimal `gorm:"type:numeric(30,10)"`
	StartAt         *time.Time       `gorm:"type:timestamptz"`
	EndAt           *time.Time       `gorm:"type:timestamptz"`
	ClosedAt        *time.Time       `gorm:"type:timestamptz;index"`
	LastSyncedAt    time.Time        `gorm:"type:timestamptz;not null"`
	RawJSON         datatypes.JSON   `gorm:"type:jsonb;not null"`
}

func (Job) TableName() string {
	return "jobs"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Quote struct {
	ID              string           `gorm:"primaryKey;type:text"`
	QuoteNumber     *string          `gorm:"type:text;index"`
	ClientName      string           `gorm:"type:text;index"`
	PropertyAddress string           `gorm:"type:text"`
	Title           string           `gorm:"type:text"`
	Status          string           `gorm:"type:text;index"`
	Total           *decimal.Decimal `gorm:"type:numeric(30,10)"`
	DraftedAt       *time.Time       `gorm:"type:timestamptz"`
	SentAt          *time.Time       `gorm:"type:timestamptz;index"`
	ApprovedAt      *time.Time       `gorm:"type:timestamptz"`
	ConvertedAt     *time.Time       `gorm:"type:timestamptz"`
	LastSyncedAt    time.Time        `gorm:"type:timestamptz;not null"`
	RawJSON         datatypes.JSON   `gorm:"type:jsonb;not null"`
}

func (Quote) TableName() string {
	return "quotes"
}

package models

import "time"

// OAuthToken holds the per-account credential pair for the remote API.
// The row is created once by the connect handshake and refreshed in place.
type OAuthToken struct {
	AccountID        string    `gorm:"primaryKey;type:text"`
	AccessToken      string    `gorm:"type:text;not null"`
	RefreshToken     string    `gorm:"type:text;not null"`
	AccessExpiresAt  time.Time `gorm:"type:timestamptz;not null"`
	RefreshExpiresAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}

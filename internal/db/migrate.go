package db

import (
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.OAuthToken{},
		&models.ServiceRequest{},
		&models.Quote{},
		&models.Job{},
		&models.Opportunity{},
		&models.SyncRun{},
	)
}

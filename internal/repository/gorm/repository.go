package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- tokens -----------------------------------------------------------------

func (s *Store) GetOAuthToken(ctx context.Context, accountID string) (*models.OAuthToken, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var token models.OAuthToken
	err := s.db.WithContext(ctx).First(&token, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) SaveOAuthToken(ctx context.Context, token *models.OAuthToken) error {
	if s == nil || s.db == nil || token == nil {
		return nil
	}
	if strings.TrimSpace(token.AccountID) == "" {
		return errors.New("token account_id is empty")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token",
			"access_expires_at",
			"refresh_expires_at",
			"updated_at",
		}),
	}).Create(token).Error
}

// --- synced records ---------------------------------------------------------

func (s *Store) UpsertServiceRequests(ctx context.Context, items []models.ServiceRequest) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_name",
			"property_address",
			"title",
			"status",
			"requested_at",
			"completed_at",
			"last_synced_at",
			"raw_json",
		}),
	}).Create(&items).Error
}

func (s *Store) UpsertQuotes(ctx context.Context, items []models.Quote) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quote_number",
			"client_name",
			"property_address",
			"title",
			"status",
			"total",
			"drafted_at",
			"sent_at",
			"approved_at",
			"converted_at",
			"last_synced_at",
			"raw_json",
		}),
	}).Create(&items).Error
}

func (s *Store) UpsertJobs(ctx context.Context, items []models.Job) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"job_number",
			"client_name",
			"property_address",
			"title",
			"status",
			"total",
			"start_at",
			"end_at",
			"closed_at",
			"last_synced_at",
			"raw_json",
		}),
	}).Create(&items).Error
}

func (s *Store) ListServiceRequests(ctx context.Context) ([]models.ServiceRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ServiceRequest
	if err := s.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListQuotes(ctx context.Context) ([]models.Quote, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Quote
	if err := s.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]models.Job, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Job
	if err := s.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- opportunities ----------------------------------------------------------

// ReplaceOpportunities rebuilds the derived table in one transaction so
// readers never observe a half-written recomputation.
func (s *Store) ReplaceOpportunities(ctx context.Context, items []models.Opportunity) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Opportunity{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (s *Store) ListOpportunities(ctx context.Context, params repository.ListOpportunitiesParams) ([]models.Opportunity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Opportunity{})
	if params.Outcome != nil && strings.TrimSpace(*params.Outcome) != "" {
		query = query.Where("outcome = ?", strings.TrimSpace(*params.Outcome))
	}
	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.Opportunity
	if err := query.Order("identity_key asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- sync runs --------------------------------------------------------------

func (s *Store) GetSyncRun(ctx context.Context, accountID string) (*models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var run models.SyncRun
	err := s.db.WithContext(ctx).First(&run, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) SaveSyncRun(ctx context.Context, run *models.SyncRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_run_at",
			"duration_ms",
			"status",
			"request_count",
			"quote_count",
			"job_count",
			"pages_fetched",
			"error_count",
			"last_error",
			"stats_json",
		}),
	}).Create(run).Error
}

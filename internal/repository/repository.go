package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
)

// TokenRepository persists the per-account OAuth credential pair.
type TokenRepository interface {
	GetOAuthToken(ctx context.Context, accountID string) (*models.OAuthToken, error)
	SaveOAuthToken(ctx context.Context, token *models.OAuthToken) error
}

// SyncRepository covers everything the sync engine reads and writes: the
// per-entity synced tables (idempotent upserts keyed on the remote ID), the
// derived opportunities (replace semantics) and the per-account run row.
type SyncRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	UpsertServiceRequests(ctx context.Context, items []models.ServiceRequest) error
	UpsertQuotes(ctx context.Context, items []models.Quote) error
	UpsertJobs(ctx context.Context, items []models.Job) error

	ListServiceRequests(ctx context.Context) ([]models.ServiceRequest, error)
	ListQuotes(ctx context.Context) ([]models.Quote, error)
	ListJobs(ctx context.Context) ([]models.Job, error)

	ReplaceOpportunities(ctx context.Context, items []models.Opportunity) error
	ListOpportunities(ctx context.Context, params ListOpportunitiesParams) ([]models.Opportunity, error)

	GetSyncRun(ctx context.Context, accountID string) (*models.SyncRun, error)
	SaveSyncRun(ctx context.Context, run *models.SyncRun) error
}

// Repository is the unified store handed to the orchestrator and handlers.
type Repository interface {
	TokenRepository
	SyncRepository
}

type ListOpportunitiesParams struct {
	Outcome *string
	Limit   int
	Offset  int
}

package sync

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/repository"
)

// Reporter overwrites the account's single sync_runs row with the outcome of
// a run. Its own persistence failure is logged and swallowed: a secondary
// fault in the reporter must never mask the run's real result.
type Reporter struct {
	Repo   repository.SyncRepository
	Logger *zap.Logger
}

func (r *Reporter) Report(ctx context.Context, accountID string, result Result, ranAt time.Time) {
	if r == nil || r.Repo == nil {
		return
	}

	run := &models.SyncRun{
		AccountID:    accountID,
		LastRunAt:    ranAt.UTC(),
		DurationMS:   result.Duration.Milliseconds(),
		Status:       result.Status,
		RequestCount: result.Requests,
		QuoteCount:   result.Quotes,
		JobCount:     result.Jobs,
		PagesFetched: result.Pages,
		ErrorCount:   result.ErrorCount,
		StatsJSON:    statsJSON(result),
	}
	if result.LastError != "" {
		msg := result.LastError
		run.LastError = &msg
	}

	if err := r.Repo.SaveSyncRun(ctx, run); err != nil && r.Logger != nil {
		r.Logger.Error("failed to persist sync run outcome",
			zap.String("account_id", accountID),
			zap.String("status", result.Status),
			zap.Error(err),
		)
	}
}

func statsJSON(result Result) datatypes.JSON {
	payload, err := json.Marshal(map[string]int{
		"requests":      result.Requests,
		"quotes":        result.Quotes,
		"jobs":          result.Jobs,
		"pages":         result.Pages,
		"errors":        result.ErrorCount,
		"opportunities": result.Opportunities,
	})
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}

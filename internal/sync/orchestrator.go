package sync

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/client/jobber"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/models"
	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/repository"
)

// PageFetcher is the slice of the GraphQL client the orchestrator needs;
// tests substitute scripted fakes.
type PageFetcher interface {
	FetchConnectionPage(ctx context.Context, query, field string, first int, after *string) (jobber.Page, error)
}

// Result is the outcome of one orchestrator run, reported to the sync_runs
// row and logged on exit.
type Result struct {
	Status        string
	Pages         int
	Requests      int
	Quotes        int
	Jobs          int
	Opportunities int
	ErrorCount    int
	LastError     string
	Duration      time.Duration
}

// Orchestrator sequences a full pass: validate the token, walk each entity
// type in a fixed order, rebuild opportunities from the now-synced store, and
// report the run. Only an auth rejection or an exhausted retry budget fails
// the run; per-page persistence faults degrade it to partial.
type Orchestrator struct {
	Repo      repository.Repository
	Client    PageFetcher
	Tokens    jobber.TokenProvider
	Pager     *Pager
	Reporter  *Reporter
	Logger    *zap.Logger
	AccountID string
	PageSize  int

	Now func() time.Time
}

type entitySpec struct {
	name    string
	query   string
	field   string
	persist func(ctx context.Context, o *Orchestrator, nodes []json.RawMessage, now time.Time) (int, error)
	count   func(result *Result, n int)
}

var entitySpecs = []entitySpec{
	{
		name:  "requests",
		query: jobber.RequestsQuery,
		field: jobber.RequestsField,
		persist: func(ctx context.Context, o *Orchestrator, nodes []json.RawMessage, now time.Time) (int, error) {
			items, err := mapServiceRequests(nodes, now)
			if err != nil {
				return 0, err
			}
			if err := o.Repo.UpsertServiceRequests(ctx, items); err != nil {
				return 0, err
			}
			return len(items), nil
		},
		count: func(result *Result, n int) { result.Requests += n },
	},
	{
		name:  "quotes",
		query: jobber.QuotesQuery,
		field: jobber.QuotesField,
		persist: func(ctx context.Context, o *Orchestrator, nodes []json.RawMessage, now time.Time) (int, error) {
			items, err := mapQuotes(nodes, now)
			if err != nil {
				return 0, err
			}
			if err := o.Repo.UpsertQuotes(ctx, items); err != nil {
				return 0, err
			}
			return len(items), nil
		},
		count: func(result *Result, n int) { result.Quotes += n },
	},
	{
		name:  "jobs",
		query: jobber.JobsQuery,
		field: jobber.JobsField,
		persist: func(ctx context.Context, o *Orchestrator, nodes []json.RawMessage, now time.Time) (int, error) {
			items, err := mapJobs(nodes, now)
			if err != nil {
				return 0, err
			}
			if err := o.Repo.UpsertJobs(ctx, items); err != nil {
				return 0, err
			}
			return len(items), nil
		},
		count: func(result *Result, n int) { result.Jobs += n },
	},
}

// Run executes one full sync pass and always reports the outcome, even when
// it returns an error.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	start := o.clock()
	result := Result{Status: models.RunStatusSuccess}

	finish := func(err error) (Result, error) {
		result.Duration = o.clock().Sub(start)
		if o.Reporter != nil {
			o.Reporter.Report(ctx, o.AccountID, result, start)
		}
		o.logSummary(result)
		return result, err
	}

	// A dead credential fails the run before any paging starts.
	if _, err := o.Tokens.AccessToken(ctx); err != nil {
		result.Status = models.RunStatusFailed
		result.ErrorCount++
		result.LastError = err.Error()
		return finish(err)
	}

	pageSize := o.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	for _, spec := range entitySpecs {
		spec := spec
		now := o.clock()

		fetch := func(ctx context.Context, after *string) (jobber.Page, error) {
			return o.Client.FetchConnectionPage(ctx, spec.query, spec.field, pageSize, after)
		}
		persist := func(ctx context.Context, nodes []json.RawMessage) (int, error) {
			return spec.persist(ctx, o, nodes, now)
		}

		stats, err := o.Pager.Walk(ctx, spec.name, fetch, persist)
		result.Pages += stats.Pages
		result.ErrorCount += stats.PersistErrors
		spec.count(&result, stats.Records)

		if err != nil {
			result.Status = models.RunStatusFailed
			result.ErrorCount++
			result.LastError = err.Error()
			return finish(err)
		}
		if stats.PersistErrors > 0 {
			result.Status = models.RunStatusPartial
			result.LastError = spec.name + ": one or more page upserts failed"
		}
	}

	// Aggregation reads the store's current state, so it must not start until
	// every entity type has finished its upsert phase.
	count, err := o.rebuildOpportunities(ctx)
	if err != nil {
		result.Status = models.RunStatusPartial
		result.ErrorCount++
		result.LastError = "aggregation: " + err.Error()
		if o.Logger != nil {
			o.Logger.Warn("opportunity rebuild failed", zap.Error(err))
		}
		return finish(nil)
	}
	result.Opportunities = count

	return finish(nil)
}

func (o *Orchestrator) rebuildOpportunities(ctx context.Context) (int, error) {
	requests, err := o.Repo.ListServiceRequests(ctx)
	if err != nil {
		return 0, err
	}
	quotes, err := o.Repo.ListQuotes(ctx)
	if err != nil {
		return 0, err
	}
	jobs, err := o.Repo.ListJobs(ctx)
	if err != nil {
		return 0, err
	}

	opportunities := BuildOpportunities(requests, quotes, jobs, o.clock())
	if err := o.Repo.ReplaceOpportunities(ctx, opportunities); err != nil {
		return 0, err
	}
	return len(opportunities), nil
}

func (o *Orchestrator) logSummary(result Result) {
	if o.Logger == nil {
		return
	}
	o.Logger.Info("sync run finished",
		zap.String("account_id", o.AccountID),
		zap.String("status", result.Status),
		zap.Int("pages", result.Pages),
		zap.Int("requests", result.Requests),
		zap.Int("quotes", result.Quotes),
		zap.Int("jobs", result.Jobs),
		zap.Int("opportunities", result.Opportunities),
		zap.Int("errors", result.ErrorCount),
		zap.Duration("duration", result.Duration),
	)
}

func (o *Orchestrator) clock() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/client/jobber"
)

const (
	defaultMaxPages             = 50
	defaultMaxConsecutiveErrors = 10
	defaultMinThrottleWait      = 2 * time.Second
	defaultMinPageDelay         = 250 * time.Millisecond
	defaultMaxPageDelay         = 5 * time.Second
)

// FetchFunc fetches one page at the given cursor (nil for the first page).
type FetchFunc func(ctx context.Context, after *string) (jobber.Page, error)

// PersistFunc upserts one page of raw nodes and returns how many it wrote.
type PersistFunc func(ctx context.Context, nodes []json.RawMessage) (int, error)

// SleepFunc suspends the walk, honoring cancellation. Tests substitute a
// recording implementation so walks run without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

type WalkStats struct {
	Pages         int
	Records       int
	PersistErrors int
}

// Pager walks a cursor connection serially. The cursor only advances after a
// successful fetch: throttles and transient faults retry the same page, and a
// run of consecutive failures beyond the budget aborts the walk with whatever
// was accumulated. Rate-limit telemetry rides on each page, so both the
// throttle backoff and the inter-page pacing are driven by server-reported
// numbers rather than guesses.
type Pager struct {
	Logger *zap.Logger

	MaxPages             int
	MaxConsecutiveErrors int
	MinThrottleWait      time.Duration
	SafetyMargin         time.Duration
	MinPageDelay         time.Duration
	MaxPageDelay         time.Duration

	Sleep SleepFunc
}

func (p *Pager) Walk(ctx context.Context, entity string, fetch FetchFunc, persist PersistFunc) (WalkStats, error) {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	maxErrors := p.MaxConsecutiveErrors
	if maxErrors <= 0 {
		maxErrors = defaultMaxConsecutiveErrors
	}

	stats := WalkStats{}
	var cursor *string
	consecutive := 0

	for stats.Pages < maxPages {
		page, err := fetch(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			if !jobber.IsRecoverable(err) {
				return stats, err
			}
			consecutive++
			if consecutive > maxErrors {
				return stats, fmt.Errorf("%s walk aborted after %d consecutive errors: %w", entity, consecutive, err)
			}
			wait := p.retryWait(err)
			if p.Logger != nil {
				p.Logger.Warn("page fetch failed, retrying same cursor",
					zap.String("entity", entity),
					zap.Int("consecutive_errors", consecutive),
					zap.Duration("wait", wait),
					zap.Error(err),
				)
			}
			if err := p.sleep(ctx, wait); err != nil {
				return stats, err
			}
			continue
		}

		consecutive = 0
		stats.Pages++

		if len(page.Nodes) > 0 {
			count, err := persist(ctx, page.Nodes)
			if err != nil {
				// Persistence failures are isolated per page: log, count,
				// keep walking. The run surfaces them as a partial status.
				stats.PersistErrors++
				if p.Logger != nil {
					p.Logger.Warn("page upsert failed, continuing walk",
						zap.String("entity", entity),
						zap.Int("page", stats.Pages),
						zap.Error(err),
					)
				}
			} else {
				stats.Records += count
			}
		}

		if !page.HasNextPage || page.EndCursor == nil || *page.EndCursor == "" {
			break
		}
		cursor = page.EndCursor

		if delay := p.pageDelay(page.Throttle); delay > 0 {
			if err := p.sleep(ctx, delay); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

// retryWait computes the throttle backoff from the server's telemetry:
// ceil((pointsNeeded - currentlyAvailable) / restoreRate) seconds plus the
// safety margin, floored at the minimum wait.
func (p *Pager) retryWait(err error) time.Duration {
	minWait := p.MinThrottleWait
	if minWait <= 0 {
		minWait = defaultMinThrottleWait
	}

	var throttle *jobber.ThrottleError
	if !errors.As(err, &throttle) || throttle.Status == nil || throttle.Status.RestoreRate <= 0 {
		return minWait
	}

	deficit := throttle.RequestedCost - throttle.Status.CurrentlyAvailable
	if deficit <= 0 {
		return minWait
	}
	wait := time.Duration(math.Ceil(deficit/throttle.Status.RestoreRate)) * time.Second
	wait += p.SafetyMargin
	if wait < minWait {
		wait = minWait
	}
	return wait
}

// pageDelay paces successive fetches off the remaining point budget: minimal
// delay while more than half the budget is available, scaling linearly up to
// the maximum as the budget drains.
func (p *Pager) pageDelay(status *jobber.ThrottleStatus) time.Duration {
	minDelay := p.MinPageDelay
	if minDelay <= 0 {
		minDelay = defaultMinPageDelay
	}
	maxDelay := p.MaxPageDelay
	if maxDelay < minDelay {
		maxDelay = defaultMaxPageDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	if status == nil || status.MaximumAvailable <= 0 {
		return minDelay
	}
	ratio := status.CurrentlyAvailable / status.MaximumAvailable
	if ratio >= 0.5 {
		return minDelay
	}
	if ratio < 0 {
		ratio = 0
	}
	scale := (0.5 - ratio) / 0.5
	return minDelay + time.Duration(float64(maxDelay-minDelay)*scale)
}

func (p *Pager) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

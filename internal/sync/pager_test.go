package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/client/jobber"
)

func noSleep() (SleepFunc, *[]time.Duration) {
	var slept []time.Duration
	return func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}, &slept
}

func rawNodes(n int) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range out {
		out[i] = json.RawMessage(fmt.Sprintf(`{"id":"node-%d"}`, i))
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

// scriptedFetch replays a fixed sequence of outcomes and records the cursor
// each call was made with.
type scriptedFetch struct {
	outcomes []func() (jobber.Page, error)
	cursors  []*string
}

func (f *scriptedFetch) fetch(ctx context.Context, after *string) (jobber.Page, error) {
	f.cursors = append(f.cursors, after)
	if len(f.outcomes) == 0 {
		return jobber.Page{}, errors.New("fetch called past end of script")
	}
	next := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return next()
}

func okPage(nodes int, next *string) func() (jobber.Page, error) {
	return func() (jobber.Page, error) {
		return jobber.Page{
			Nodes:       rawNodes(nodes),
			HasNextPage: next != nil,
			EndCursor:   next,
		}, nil
	}
}

func countingPersist(fail map[int]bool) (PersistFunc, *int) {
	var calls int
	total := 0
	return func(ctx context.Context, nodes []json.RawMessage) (int, error) {
		calls++
		if fail[calls] {
			return 0, errors.New("upsert exploded")
		}
		total += len(nodes)
		return len(nodes), nil
	}, &total
}

func TestRetryWait_FromThrottleTelemetry(t *testing.T) {
	p := &Pager{MinThrottleWait: 2 * time.Second, SafetyMargin: time.Second}
	err := &jobber.ThrottleError{
		Status: &jobber.ThrottleStatus{
			CurrentlyAvailable: 0,
			MaximumAvailable:   10000,
			RestoreRate:        500,
		},
		RequestedCost: 2000,
	}
	wait := p.retryWait(err)
	if wait < 4*time.Second {
		t.Fatalf("wait=%s want >= 4s", wait)
	}
	// ceil(2000/500)=4s plus 1s margin.
	if wait != 5*time.Second {
		t.Fatalf("wait=%s want 5s", wait)
	}
}

func TestRetryWait_FallsBackToMinimum(t *testing.T) {
	p := &Pager{MinThrottleWait: 3 * time.Second}
	tests := []struct {
		name string
		err  error
	}{
		{"transient", &jobber.TransientError{Err: errors.New("conn reset")}},
		{"throttle without telemetry", &jobber.ThrottleError{}},
		{"throttle with surplus", &jobber.ThrottleError{
			Status:        &jobber.ThrottleStatus{CurrentlyAvailable: 5000, RestoreRate: 500},
			RequestedCost: 100,
		}},
	}
	for _, tt := range tests {
		if wait := p.retryWait(tt.err); wait != 3*time.Second {
			t.Fatalf("%s: wait=%s want 3s", tt.name, wait)
		}
	}
}

func TestWalk_EmptyFirstPage(t *testing.T) {
	sleep, _ := noSleep()
	p := &Pager{Sleep: sleep}
	fetch := &scriptedFetch{outcomes: []func() (jobber.Page, error){okPage(0, nil)}}
	persist, total := countingPersist(nil)

	stats, err := p.Walk(context.Background(), "requests", fetch.fetch, persist)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Records != 0 || *total != 0 {
		t.Fatalf("records=%d want 0", stats.Records)
	}
	if stats.Pages != 1 {
		t.Fatalf("pages=%d want 1", stats.Pages)
	}
}

func TestWalk_MidWalkThrottleRetriesSameCursor(t *testing.T) {
	sleep, slept := noSleep()
	p := &Pager{Sleep: sleep, MinThrottleWait: 2 * time.Second}

	throttled := func() (jobber.Page, error) {
		return jobber.Page{}, &jobber.ThrottleError{
			Status:        &jobber.ThrottleStatus{CurrentlyAvailable: 0, MaximumAvailable: 10000, RestoreRate: 500},
			RequestedCost: 2000,
		}
	}
	// Five pages of ten records; the third fetch is throttled once.
	fetch := &scriptedFetch{outcomes: []func() (jobber.Page, error){
		okPage(10, strPtr("c1")),
		okPage(10, strPtr("c2")),
		throttled,
		okPage(10, strPtr("c3")),
		okPage(10, strPtr("c4")),
		okPage(10, nil),
	}}
	persist, total := countingPersist(nil)

	stats, err := p.Walk(context.Background(), "quotes", fetch.fetch, persist)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Pages != 5 {
		t.Fatalf("pages=%d want 5", stats.Pages)
	}
	if stats.Records != 50 || *total != 50 {
		t.Fatalf("records=%d want 50", stats.Records)
	}
	// The throttled attempt and its retry must target the same cursor.
	if got := fetch.cursors[2]; got == nil || *got != "c2" {
		t.Fatalf("throttled fetch cursor=%v want c2", got)
	}
	if got := fetch.cursors[3]; got == nil || *got != "c2" {
		t.Fatalf("retry cursor=%v want c2 (cursor must not advance on failure)", got)
	}
	// At least one backoff sleep of >= 4s happened.
	found := false
	for _, d := range *slept {
		if d >= 4*time.Second {
			found = true
		}
	}
	if !found {
		t.Fatalf("slept=%v want a backoff >= 4s", *slept)
	}
}

func TestWalk_BoundedRetries(t *testing.T) {
	sleep, _ := noSleep()
	p := &Pager{Sleep: sleep, MaxConsecutiveErrors: 3}

	var calls int
	fetch := func(ctx context.Context, after *string) (jobber.Page, error) {
		calls++
		return jobber.Page{}, &jobber.TransientError{Err: errors.New("boom")}
	}
	persist, _ := countingPersist(nil)

	stats, err := p.Walk(context.Background(), "jobs", fetch, persist)
	if err == nil {
		t.Fatalf("expected error after exhausting retry budget")
	}
	if calls != 4 {
		t.Fatalf("calls=%d want 4 (budget of 3 retries plus the failing attempt)", calls)
	}
	if stats.Pages != 0 {
		t.Fatalf("pages=%d want 0", stats.Pages)
	}
}

func TestWalk_ErrorCounterResetsOnSuccess(t *testing.T) {
	sleep, _ := noSleep()
	p := &Pager{Sleep: sleep, MaxConsecutiveErrors: 2}

	transient := func() (jobber.Page, error) {
		return jobber.Page{}, &jobber.TransientError{Err: errors.New("flaky")}
	}
	fetch := &scriptedFetch{outcomes: []func() (jobber.Page, error){
		transient,
		transient,
		okPage(5, strPtr("c1")),
		transient,
		transient,
		okPage(5, nil),
	}}
	persist, _ := countingPersist(nil)

	stats, err := p.Walk(context.Background(), "requests", fetch.fetch, persist)
	if err != nil {
		t.Fatalf("err=%v (interleaved successes must reset the counter)", err)
	}
	if stats.Pages != 2 || stats.Records != 10 {
		t.Fatalf("pages=%d records=%d want 2/10", stats.Pages, stats.Records)
	}
}

func TestWalk_SchemaErrorIsRetried(t *testing.T) {
	sleep, _ := noSleep()
	p := &Pager{Sleep: sleep}

	fetch := &scriptedFetch{outcomes: []func() (jobber.Page, error){
		func() (jobber.Page, error) { return jobber.Page{}, &jobber.SchemaError{Message: "missing nodes"} },
		okPage(3, nil),
	}}
	persist, _ := countingPersist(nil)

	stats, err := p.Walk(context.Background(), "requests", fetch.fetch, persist)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Records != 3 {
		t.Fatalf("records=%d want 3", stats.Records)
	}
}

func TestWalk_AuthErrorAbortsImmediately(t *testing.T) {
	sleep, slept := noSleep()
	p := &Pager{Sleep: sleep}

	var calls int
	fetch := func(ctx context.Context, after *string) (jobber.Page, error) {
		calls++
		return jobber.Page{}, &jobber.AuthError{Message: "revoked"}
	}
	persist, _ := countingPersist(nil)

	_, err := p.Walk(context.Background(), "requests", fetch, persist)
	if !jobber.IsAuthError(err) {
		t.Fatalf("err=%v want AuthError", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1 (auth rejections are never retried)", calls)
	}
	if len(*slept) != 0 {
		t.Fatalf("slept=%v want none", *slept)
	}
}

func TestWalk_PersistFailureContinuesWalk(t *testing.T) {
	sleep, _ := noSleep()
	p := &Pager{Sleep: sleep}

	fetch := &scriptedFetch{outcomes: []func() (jobber.Page, error){
		okPage(10, strPtr("c1")),
		okPage(10, strPtr("c2")),
		okPage(10, nil),
	}}
	persist, total := countingPersist(map[int]bool{2: true})

	stats, err := p.Walk(context.Background(), "quotes", fetch.fetch, persist)
	if err != nil {
		t.Fatalf("err=%v (persist failures must not abort the walk)", err)
	}
	if stats.Pages != 3 {
		t.Fatalf("pages=%d want 3", stats.Pages)
	}
	if stats.PersistErrors != 1 {
		t.Fatalf("persistErrors=%d want 1", stats.PersistErrors)
	}
	if stats.Records != 20 || *total != 20 {
		t.Fatalf("records=%d want 20 (failed page not counted)", stats.Records)
	}
}

func TestWalk_PageCap(t *testing.T) {
	sleep, _ := noSleep()
	p := &Pager{Sleep: sleep, MaxPages: 2}

	fetch := &scriptedFetch{outcomes: []func() (jobber.Page, error){
		okPage(10, strPtr("c1")),
		okPage(10, strPtr("c2")),
		okPage(10, strPtr("c3")),
	}}
	persist, _ := countingPersist(nil)

	stats, err := p.Walk(context.Background(), "jobs", fetch.fetch, persist)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Pages != 2 {
		t.Fatalf("pages=%d want 2 (hard cap)", stats.Pages)
	}
}

func TestPageDelay_AdaptsToBudget(t *testing.T) {
	p := &Pager{MinPageDelay: 100 * time.Millisecond, MaxPageDelay: 4 * time.Second}

	tests := []struct {
		name   string
		status *jobber.ThrottleStatus
		want   time.Duration
	}{
		{"no telemetry", nil, 100 * time.Millisecond},
		{"plentiful", &jobber.ThrottleStatus{CurrentlyAvailable: 9000, MaximumAvailable: 10000}, 100 * time.Millisecond},
		{"exactly half", &jobber.ThrottleStatus{CurrentlyAvailable: 5000, MaximumAvailable: 10000}, 100 * time.Millisecond},
		{"exhausted", &jobber.ThrottleStatus{CurrentlyAvailable: 0, MaximumAvailable: 10000}, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := p.pageDelay(tt.status); got != tt.want {
			t.Fatalf("%s: delay=%s want %s", tt.name, got, tt.want)
		}
	}

	// A quarter of the budget left lands strictly between the bounds.
	mid := p.pageDelay(&jobber.ThrottleStatus{CurrentlyAvailable: 2500, MaximumAvailable: 10000})
	if mid <= 100*time.Millisecond || mid >= 4*time.Second {
		t.Fatalf("delay=%s want between min and max", mid)
	}
}

func TestWalk_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pager{
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	fetch := &scriptedFetch{outcomes: []func() (jobber.Page, error){
		func() (jobber.Page, error) { return jobber.Page{}, &jobber.TransientError{Err: errors.New("flaky")} },
	}}
	persist, _ := countingPersist(nil)

	_, err := p.Walk(ctx, "requests", fetch.fetch, persist)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

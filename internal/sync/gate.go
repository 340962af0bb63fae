package sync

import "sync"

// Gate serializes runs: the cron schedule and the on-demand trigger share one
// gate so at most one sync executes at a time.
type Gate struct {
	mu   sync.Mutex
	busy bool
}

func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

func (g *Gate) Release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

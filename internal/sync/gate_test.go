package sync

import "testing"

func TestGate(t *testing.T) {
	g := &Gate{}
	if !g.TryAcquire() {
		t.Fatalf("first acquire must succeed")
	}
	if g.TryAcquire() {
		t.Fatalf("second acquire must fail while held")
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("acquire after release must succeed")
	}
}

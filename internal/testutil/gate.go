package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roach88/sweep/internal/ir"
)

// Gate is an objective that blocks every evaluation until Release is
// called, while tracking how many evaluations are in progress. It is the
// standard tool for asserting concurrency limits.
type Gate struct {
	mu      sync.Mutex
	active  int
	peak    int
	calls   int
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	// Result is returned by every released evaluation.
	Result ir.Value
}

// NewGate creates a closed gate returning result.
func NewGate(result ir.Value) *Gate {
	return &Gate{
		entered: make(chan struct{}, 1024),
		release: make(chan struct{}),
		Result:  result,
	}
}

// Evaluate implements trial.Objective.
func (g *Gate) Evaluate(ctx context.Context, _ ir.Object) (ir.Value, error) {
	g.mu.Lock()
	g.active++
	g.calls++
	g.peak = max(g.peak, g.active)
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}()

	g.entered <- struct{}{}

	select {
	case <-g.release:
		return g.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release opens the gate for every current and future evaluation.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// WaitEntered blocks until n evaluations have entered the gate, failing
// the test after timeout.
func (g *Gate) WaitEntered(t testing.TB, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-g.entered:
		case <-deadline:
			t.Fatalf("only %d of %d evaluations entered the gate within %v", i, n, timeout)
		}
	}
}

// Active returns the number of evaluations currently blocked.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Peak returns the maximum number of simultaneous evaluations seen.
func (g *Gate) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

// Calls returns the total number of evaluations started.
func (g *Gate) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

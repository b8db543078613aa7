package trial

import (
	"context"
	"fmt"

	"github.com/roach88/sweep/internal/ir"
)

// Handle identifies one trial's isolated observer location.
type Handle interface {
	TrialID() int64

	// Location is a human-readable path or URI for the trial's artifacts.
	Location() string
}

// Sink persists per-trial configuration, records and final status.
// The Runner opens exactly one handle per trial and always finalizes it.
// Implementations must be safe for concurrent use by multiple trials.
type Sink interface {
	Open(ctx context.Context, trialID int64, cfg ir.Object) (Handle, error)
	Record(ctx context.Context, h Handle, key string, v ir.Value) error
	Finalize(ctx context.Context, h Handle, status Status) error
}

// Record keys written by the Runner.
const (
	RecordResult   = "result"
	RecordError    = "error"
	RecordAttempts = "attempts"
	RecordElapsed  = "elapsed_ms"
)

// NopSink discards everything. Useful when no persistence is wanted.
type NopSink struct{}

type nopHandle int64

func (h nopHandle) TrialID() int64   { return int64(h) }
func (h nopHandle) Location() string { return fmt.Sprintf("trial-%d", int64(h)) }

// Open implements Sink.
func (NopSink) Open(_ context.Context, trialID int64, _ ir.Object) (Handle, error) {
	return nopHandle(trialID), nil
}

// Record implements Sink.
func (NopSink) Record(context.Context, Handle, string, ir.Value) error { return nil }

// Finalize implements Sink.
func (NopSink) Finalize(context.Context, Handle, Status) error { return nil }

package sweep

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/engine"
	"github.com/roach88/sweep/internal/space"
	"github.com/roach88/sweep/internal/trial"
)

// Context describes one sweep.
type Context struct {
	// Name labels the run (for example the preset that drove it).
	Name string

	// RunID identifies the run. Empty means generate one with RunIDs.
	RunID string

	// RunIDs defaults to engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Base is the read-only layer stack beneath every assignment: the base
	// configuration followed by presets in the order they were named.
	Base []compose.Layer

	Space     space.SearchSpace
	Objective trial.Objective

	// Sink receives per-trial records. Nil means trial.NopSink.
	Sink trial.Sink

	// Concurrency is the worker pool size. Zero means 1.
	Concurrency int

	// Grace is how long running trials may continue after the Execute
	// context is cancelled. Negative waits for them; zero stops them at
	// once.
	Grace time.Duration

	// MaxRetries is the number of extra attempts a failing trial gets.
	// Zero (the default) disables retry.
	MaxRetries int

	// Metric names the objective's result in reports.
	Metric string
	Mode   aggregate.Mode

	// Top is the leaderboard size. Zero means every completed trial.
	Top int

	Logger *slog.Logger
	Tracer trace.Tracer

	// Now defaults to time.Now.
	Now func() time.Time
}

func (c *Context) withDefaults() {
	if c.RunIDs == nil {
		c.RunIDs = engine.UUIDv7Generator{}
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	if c.Sink == nil {
		c.Sink = trial.NopSink{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Metric == "" {
		c.Metric = "result"
	}
}

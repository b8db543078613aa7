package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/ir"
)

const tracerName = "github.com/roach88/sweep/internal/trial"

// Runner executes single trials. A Runner is safe for concurrent use as
// long as its Objective and Sink are.
type Runner struct {
	// Objective is the function under optimization. Required.
	Objective Objective

	// Sink receives per-trial records. Nil means NopSink.
	Sink Sink

	// Base is the read-only layer stack (base document, then presets)
	// beneath every assignment.
	Base []compose.Layer

	// MaxRetries is how many extra attempts a failing objective gets.
	// Zero disables retry. Cancellation is never retried.
	MaxRetries int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer

	// Now defaults to time.Now.
	Now func() time.Time
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	return otel.Tracer(tracerName)
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) sink() Sink {
	if r.Sink != nil {
		return r.Sink
	}
	return NopSink{}
}

// Run executes trial id with the given assignment layer and returns its
// terminal outcome. Run never returns an error: every failure, including a
// panicking objective or a cancelled context, is folded into the outcome.
//
// Steps:
//  1. Merge Base with the assignment
//  2. Open an observer handle
//  3. Invoke the objective (retrying up to MaxRetries)
//  4. Record the result or error
//  5. Finalize the handle, whatever happened in 3 and 4
func (r *Runner) Run(ctx context.Context, id int64, assignment compose.Layer) (out Outcome) {
	started := r.now()
	log := r.logger().With("trial", id)

	ctx, span := r.tracer().Start(ctx, "trial", trace.WithAttributes(attribute.Int64("trial.id", id)))
	defer func() {
		out.StartedAt = started
		out.EndedAt = r.now()
		span.SetAttributes(
			attribute.String("trial.status", out.Status.String()),
			attribute.Int("trial.attempts", out.Attempts),
		)
		if out.Failure != nil {
			span.RecordError(out.Failure)
			span.SetStatus(codes.Error, string(out.Failure.Reason))
		} else if out.Result != nil {
			span.SetAttributes(attribute.Float64("trial.result", *out.Result))
		}
		span.End()
	}()

	if r.Objective == nil {
		return Failed(id, ReasonObjectiveError, errors.New("no objective configured"))
	}

	cfg, err := compose.Merge(append(slices.Clip(r.Base), assignment)...)
	if err != nil {
		log.Error("compose trial config", "error", err)
		return Failed(id, ReasonConfig, err)
	}

	sink := r.sink()
	h, err := sink.Open(ctx, id, cfg)
	if err != nil {
		log.Error("open observer", "error", err)
		return Failed(id, ReasonObserver, err)
	}

	// Finalize must run even when ctx is already cancelled.
	finalCtx := context.WithoutCancel(ctx)
	defer func() {
		out.Artifact = h.Location()
		r.record(finalCtx, sink, h, out, started, log)
		if ferr := sink.Finalize(finalCtx, h, out.Status); ferr != nil {
			log.Error("finalize observer", "error", ferr)
		}
	}()

	for attempt := 1; ; attempt++ {
		v, err := r.invoke(ctx, cfg)
		out = classify(ctx, id, v, err)
		out.Attempts = attempt

		if out.Status == StatusCompleted {
			log.Debug("trial completed", "result", *out.Result, "attempts", attempt)
			return out
		}
		if out.Failure.Reason == ReasonCancelled || attempt > r.MaxRetries {
			log.Warn("trial failed", "reason", out.Failure.Message(), "attempts", attempt)
			return out
		}
		log.Info("retrying trial", "attempt", attempt, "reason", out.Failure.Message())
	}
}

// invoke calls the objective on its own goroutine so that a cancelled
// context always produces an outcome, even if the objective ignores ctx.
// The objective gets a private copy of the configuration.
func (r *Runner) invoke(ctx context.Context, cfg ir.Object) (ir.Value, error) {
	type result struct {
		v   ir.Value
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: ErrPanic{Value: p}}
			}
		}()
		v, err := r.Objective.Evaluate(ctx, cfg.Clone())
		done <- result{v: v, err: err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// classify turns an objective return into an outcome.
func classify(ctx context.Context, id int64, v ir.Value, err error) Outcome {
	var panicked ErrPanic
	switch {
	case errors.As(err, &panicked):
		return Failed(id, ReasonPanic, err)
	case err != nil && ctx.Err() != nil:
		return Failed(id, ReasonCancelled, err)
	case err != nil:
		return Failed(id, ReasonObjectiveError, err)
	}

	f, ok := ir.AsFloat(v)
	if !ok {
		return Failed(id, ReasonNonNumeric, fmt.Errorf("objective returned %s, want a finite number", describe(v)))
	}
	return Completed(id, f)
}

func describe(v ir.Value) string {
	if _, isFloat := v.(ir.Float); isFloat {
		return fmt.Sprintf("non-finite float %v", float64(v.(ir.Float)))
	}
	return ir.Kind(v)
}

// record writes the trial's result or error to the sink. Record failures
// are logged and do not change the outcome.
func (r *Runner) record(ctx context.Context, sink Sink, h Handle, out Outcome, started time.Time, log *slog.Logger) {
	entries := []ir.Pair{}
	if out.Result != nil {
		entries = append(entries, ir.O(RecordResult, ir.Float(*out.Result)))
	}
	if out.Failure != nil {
		entries = append(entries, ir.O(RecordError, ir.String(out.Failure.Message())))
	}
	entries = append(entries,
		ir.O(RecordAttempts, ir.Int(int64(out.Attempts))),
		ir.O(RecordElapsed, ir.Int(r.now().Sub(started).Milliseconds())),
	)

	for _, e := range entries {
		if err := sink.Record(ctx, h, e.Key, e.Value); err != nil {
			log.Error("record observer entry", "key", e.Key, "error", err)
		}
	}
}

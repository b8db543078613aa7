package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/engine"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/space"
	"github.com/roach88/sweep/internal/trial"
)

const tracerName = "github.com/roach88/sweep/internal/sweep"

// ErrNoObjective is returned by Prepare when the context has no objective.
var ErrNoObjective = errors.New("sweep: no objective configured")

// ErrAlreadyExecuted is returned by a second call to Execute.
var ErrAlreadyExecuted = errors.New("sweep: run already executed")

// Run is a prepared sweep. Every trial exists (Pending) and every trial
// configuration has been merged and hashed.
type Run struct {
	ID   string
	Name string

	// BaseConfig is the merge of the base stack without any assignment.
	BaseConfig ir.Object

	// Trials is indexed by trial id.
	Trials []*trial.Trial

	Concurrency int
	Metric      string
	Mode        aggregate.Mode

	StartedAt time.Time
	EndedAt   time.Time

	ctx       Context
	scheduler *engine.Scheduler
	jobs      []engine.Job

	mu       sync.Mutex
	executed bool
}

// Prepare validates c and expands its search space into pending trials.
//
// Errors:
//   - ErrNoObjective if c.Objective is nil
//   - *engine.WorkerPoolError if the pool cannot be built
//   - *space.SearchSpaceError if the space is invalid
//   - *compose.ConfigError if any layer or trial configuration conflicts
func Prepare(c Context) (*Run, error) {
	c.withDefaults()
	if c.Objective == nil {
		return nil, ErrNoObjective
	}

	r := &Run{
		ID:          c.RunID,
		Name:        c.Name,
		Concurrency: c.Concurrency,
		Metric:      c.Metric,
		Mode:        c.Mode,
		ctx:         c,
	}
	if r.ID == "" {
		r.ID = c.RunIDs.Generate()
	}

	// The caller keeps ownership of c.Base; trials only ever see this copy.
	stack := make([]compose.Layer, len(c.Base), len(c.Base)+1)
	for i, l := range c.Base {
		stack[i] = l.Clone()
	}

	runner := &trial.Runner{
		Objective:  c.Objective,
		Sink:       c.Sink,
		Base:       stack,
		MaxRetries: c.MaxRetries,
		Logger:     c.Logger.With("run", r.ID),
		Tracer:     c.Tracer,
		Now:        c.Now,
	}
	sched, err := engine.NewScheduler(runner,
		engine.WithConcurrency(c.Concurrency),
		engine.WithGrace(c.Grace),
		engine.WithLogger(c.Logger.With("run", r.ID)),
		engine.WithStartHook(r.markStarted),
	)
	if err != nil {
		return nil, err
	}
	r.scheduler = sched

	plan, err := space.NewPlan(c.Space)
	if err != nil {
		return nil, err
	}

	base, err := compose.Merge(stack...)
	if err != nil {
		return nil, err
	}
	r.BaseConfig = base

	r.Trials = make([]*trial.Trial, 0, plan.Len())
	r.jobs = make([]engine.Job, 0, plan.Len())
	for a := range plan.All() {
		layer := a.Layer()
		cfg, err := compose.Merge(append(stack, layer)...)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", a.TrialID, err)
		}
		t, err := trial.New(a.TrialID, a.Values, cfg)
		if err != nil {
			return nil, &compose.ConfigError{
				Layer:   compose.LayerAssignment,
				Message: err.Error(),
			}
		}
		r.Trials = append(r.Trials, t)
		r.jobs = append(r.jobs, engine.Job{TrialID: a.TrialID, Assignment: layer})
	}

	c.Logger.Debug("sweep prepared", "run", r.ID, "trials", len(r.Trials), "concurrency", c.Concurrency)
	return r, nil
}

// markStarted runs on worker goroutines.
func (r *Run) markStarted(id int64, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Trials[id].Start(r.ctx.Now()); err != nil {
		r.ctx.Logger.Error("trial start rejected", "run", r.ID, "trial", id, "error", err)
	}
}

// Scheduler exposes the run's scheduler for progress reporting.
func (r *Run) Scheduler() *engine.Scheduler {
	return r.scheduler
}

// Execute runs every trial and aggregates the outcomes. Cancelling ctx
// stops new trials from starting; the trials still running get the
// context's grace period.
//
// The returned report is always non-nil unless the run was already
// executed. When no trial completed the error is an
// *aggregate.NoSuccessfulTrialsError and the report still carries the
// audit.
func (r *Run) Execute(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	if r.executed {
		r.mu.Unlock()
		return nil, ErrAlreadyExecuted
	}
	r.executed = true
	r.StartedAt = r.ctx.Now()
	r.mu.Unlock()

	tracer := r.ctx.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "sweep",
		trace.WithAttributes(
			attribute.String("sweep.run_id", r.ID),
			attribute.Int("sweep.trials", len(r.Trials)),
			attribute.Int("sweep.concurrency", r.Concurrency),
			attribute.String("sweep.mode", r.Mode.String()),
		))
	defer span.End()

	log := r.ctx.Logger.With("run", r.ID)
	log.Info("sweep started", "trials", len(r.Trials), "concurrency", r.Concurrency)

	outcomes, err := r.scheduler.Dispatch(ctx, r.jobs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for o := range outcomes {
		r.mu.Lock()
		t := r.Trials[o.TrialID]
		if t.Status == trial.StatusPending {
			// No start hook ran for this trial.
			_ = t.Start(o.StartedAt)
		}
		if err := t.Finish(o); err != nil {
			log.Error("dropping outcome", "trial", o.TrialID, "error", err)
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.EndedAt = r.ctx.Now()
	r.mu.Unlock()

	report, err := r.report(ctx.Err() != nil)
	span.SetAttributes(
		attribute.Int("sweep.completed", report.Summary.Completed),
		attribute.Int("sweep.failed", report.Summary.Failed),
		attribute.Int("sweep.not_started", len(report.NotStarted)),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Warn("sweep finished without a successful trial",
			"failed", report.Summary.Failed,
			"not_started", len(report.NotStarted),
			"cancelled", report.Cancelled,
		)
		return report, err
	}

	log.Info("sweep finished",
		"completed", report.Summary.Completed,
		"failed", report.Summary.Failed,
		"not_started", len(report.NotStarted),
		"best_trial", report.Best.TrialID,
		r.Metric, report.Best.Result,
		"cancelled", report.Cancelled,
	)
	return report, nil
}

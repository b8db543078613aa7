package trial

import (
	"fmt"
	"time"

	"github.com/roach88/sweep/internal/ir"
)

// Trial is one evaluation of the objective at one point of the search space.
type Trial struct {
	// ID is the 0-based expansion index, unique within a run.
	ID int64

	// Assignment is the per-trial override layer.
	Assignment ir.Object

	// Config is the fully merged configuration. It is never mutated after
	// the trial is created.
	Config ir.Object

	// ConfigHash is the content hash of Config.
	ConfigHash string

	Status Status

	// Result is set if and only if Status is StatusCompleted.
	Result *float64

	// Failure is set if and only if Status is StatusFailed.
	Failure *Failure

	// Artifact is the observer location for this trial, if one was opened.
	Artifact string

	// Attempts counts objective invocations, including retries.
	Attempts int

	// Seq orders trials by completion within a run.
	Seq int64

	StartedAt time.Time
	EndedAt   time.Time
}

// New creates a Pending trial.
func New(id int64, assignment, config ir.Object) (*Trial, error) {
	hash, err := ir.ConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("trial %d: %w", id, err)
	}
	return &Trial{
		ID:         id,
		Assignment: assignment,
		Config:     config,
		ConfigHash: hash,
		Status:     StatusPending,
	}, nil
}

// Start moves the trial from Pending to Running.
func (t *Trial) Start(at time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("trial %d: start from %s: %w", t.ID, t.Status, ErrIllegalTransition)
	}
	t.Status = StatusRunning
	t.StartedAt = at
	return nil
}

// Finish applies a terminal outcome to a Running trial.
func (t *Trial) Finish(o Outcome) error {
	if t.Status != StatusRunning {
		return fmt.Errorf("trial %d: finish from %s: %w", t.ID, t.Status, ErrIllegalTransition)
	}
	if o.TrialID != t.ID {
		return fmt.Errorf("trial %d: outcome belongs to trial %d", t.ID, o.TrialID)
	}
	if !o.Status.Terminal() {
		return fmt.Errorf("trial %d: finish with %s: %w", t.ID, o.Status, ErrIllegalTransition)
	}
	if o.Status == StatusCompleted && o.Result == nil {
		return fmt.Errorf("trial %d: completed outcome has no result", t.ID)
	}

	t.Status = o.Status
	t.Result = nil
	t.Failure = nil
	if o.Status == StatusCompleted {
		r := *o.Result
		t.Result = &r
	} else {
		t.Failure = o.Failure
	}
	t.Artifact = o.Artifact
	t.Attempts = o.Attempts
	t.Seq = o.Seq
	if !o.StartedAt.IsZero() && t.StartedAt.IsZero() {
		t.StartedAt = o.StartedAt
	}
	t.EndedAt = o.EndedAt
	return nil
}

// Elapsed is the wall time between start and end, zero while not terminal.
func (t *Trial) Elapsed() time.Duration {
	if !t.Status.Terminal() || t.StartedAt.IsZero() {
		return 0
	}
	return t.EndedAt.Sub(t.StartedAt)
}

// Reason is the failure message, empty unless the trial failed.
func (t *Trial) Reason() string {
	if t.Failure == nil {
		return ""
	}
	return t.Failure.Message()
}

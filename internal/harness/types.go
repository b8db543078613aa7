package harness

import (
	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/store"
	"github.com/roach88/sweep/internal/sweep"
	"github.com/roach88/sweep/internal/trial"
)

// TraceEvent is the outcome of one trial, in trial id order.
type TraceEvent struct {
	TrialID    int64     `json:"trial_id"`
	Status     string    `json:"status"`
	Result     *float64  `json:"result,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Assignment ir.Object `json:"assignment"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every trial's outcome in trial id order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunError is the sweep's own error, such as no successful trials.
	RunError string `json:"run_error,omitempty"`

	Report *sweep.Report `json:"report"`

	// Stored is the run header and trials as persisted to the store.
	Stored       store.Run      `json:"-"`
	StoredTrials []*trial.Trial `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrial appends a trial outcome to the trace.
func (r *Result) AddTrial(row aggregate.AuditRow) {
	r.Trace = append(r.Trace, TraceEvent{
		TrialID:    row.TrialID,
		Status:     row.Status.String(),
		Result:     row.Result,
		Reason:     row.Reason,
		Assignment: row.Assignment,
	})
}

// Event returns the trace entry for a trial.
func (r *Result) Event(id int64) (TraceEvent, bool) {
	for _, e := range r.Trace {
		if e.TrialID == id {
			return e, true
		}
	}
	return TraceEvent{}, false
}

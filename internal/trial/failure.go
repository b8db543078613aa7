package trial

import (
	"errors"
	"fmt"
)

// FailureReason classifies why a trial failed.
type FailureReason string

const (
	// ReasonObjectiveError: the objective returned an error.
	ReasonObjectiveError FailureReason = "objective_error"

	// ReasonPanic: the objective panicked.
	ReasonPanic FailureReason = "panic"

	// ReasonNonNumeric: the objective returned something other than a finite number.
	ReasonNonNumeric FailureReason = "non_numeric"

	// ReasonCancelled: the run was cancelled before the objective returned.
	ReasonCancelled FailureReason = "cancelled"

	// ReasonConfig: the trial configuration could not be composed.
	ReasonConfig FailureReason = "config"

	// ReasonObserver: the observer sink could not open a handle.
	ReasonObserver FailureReason = "observer"
)

// Failure is the recorded cause of a Failed trial. It is data on the
// outcome, never an error returned by the scheduler.
type Failure struct {
	TrialID int64
	Reason  FailureReason
	Err     error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("trial %d: %s", f.TrialID, f.Reason)
	}
	return fmt.Sprintf("trial %d: %s: %v", f.TrialID, f.Reason, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Message is the failure text without the trial prefix, as shown in reports.
func (f *Failure) Message() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

// IsCancelled returns true if err is a cancellation Failure.
func IsCancelled(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Reason == ReasonCancelled
}

// ErrIllegalTransition is returned when a trial is moved out of a terminal
// state or skips Running.
var ErrIllegalTransition = errors.New("illegal trial status transition")

// ErrPanic wraps the value recovered from a panicking objective.
type ErrPanic struct {
	Value any
}

func (e ErrPanic) Error() string {
	return fmt.Sprintf("objective panicked: %v", e.Value)
}

package trial

import "time"

// Outcome is the terminal result of running one trial.
type Outcome struct {
	TrialID int64
	Status  Status

	// Result is non-nil only for StatusCompleted.
	Result *float64

	// Failure is non-nil only for StatusFailed.
	Failure *Failure

	Artifact  string
	Attempts  int
	StartedAt time.Time
	EndedAt   time.Time

	// Seq is the completion order stamped by the scheduler.
	Seq int64
}

// Elapsed is the wall time the trial ran.
func (o Outcome) Elapsed() time.Duration {
	return o.EndedAt.Sub(o.StartedAt)
}

// Completed builds a successful outcome.
func Completed(id int64, result float64) Outcome {
	return Outcome{TrialID: id, Status: StatusCompleted, Result: &result}
}

// Failed builds a failed outcome.
func Failed(id int64, reason FailureReason, err error) Outcome {
	return Outcome{
		TrialID: id,
		Status:  StatusFailed,
		Failure: &Failure{TrialID: id, Reason: reason, Err: err},
	}
}

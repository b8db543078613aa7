package aggregate

import (
	"errors"
	"fmt"
)

// NoSuccessfulTrialsError is returned when no trial of a run completed.
type NoSuccessfulTrialsError struct {
	Total      int
	Failed     int
	NotStarted int
}

// Error implements the error interface.
func (e *NoSuccessfulTrialsError) Error() string {
	if e.Total == 0 {
		return "no successful trials: run has no trials"
	}
	return fmt.Sprintf("no successful trials: %d of %d failed, %d not started", e.Failed, e.Total, e.NotStarted)
}

// IsNoSuccessfulTrials returns true if err is or wraps a *NoSuccessfulTrialsError.
func IsNoSuccessfulTrials(err error) bool {
	var ne *NoSuccessfulTrialsError
	return errors.As(err, &ne)
}

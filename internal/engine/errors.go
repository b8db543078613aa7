package engine

import (
	"errors"
	"fmt"
)

// WorkerPoolError reports a failure of the worker pool itself, as opposed
// to a failure of any trial. It aborts dispatch before any trial starts.
type WorkerPoolError struct {
	// Code identifies the error category.
	Code WorkerPoolErrorCode

	// Message is a human-readable description.
	Message string
}

// WorkerPoolErrorCode categorizes pool errors.
type WorkerPoolErrorCode string

const (
	// ErrCodeNoWorkers indicates the requested concurrency cannot host a worker.
	ErrCodeNoWorkers WorkerPoolErrorCode = "NO_WORKERS"

	// ErrCodeNoRunner indicates the scheduler has no trial runner.
	ErrCodeNoRunner WorkerPoolErrorCode = "NO_RUNNER"

	// ErrCodeDuplicateTrial indicates two jobs share a trial id.
	ErrCodeDuplicateTrial WorkerPoolErrorCode = "DUPLICATE_TRIAL"

	// ErrCodeAlreadyDispatched indicates Dispatch was called twice.
	ErrCodeAlreadyDispatched WorkerPoolErrorCode = "ALREADY_DISPATCHED"
)

// Error implements the error interface.
func (e *WorkerPoolError) Error() string {
	return fmt.Sprintf("worker pool %s: %s", e.Code, e.Message)
}

// IsWorkerPoolError returns true if err is or wraps a *WorkerPoolError.
func IsWorkerPoolError(err error) bool {
	var we *WorkerPoolError
	return errors.As(err, &we)
}

func newPoolError(code WorkerPoolErrorCode, format string, args ...any) *WorkerPoolError {
	return &WorkerPoolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

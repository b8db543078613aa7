package space

import (
	"errors"
	"fmt"
)

// SearchSpaceError reports a parameter declaration that cannot be expanded.
type SearchSpaceError struct {
	// Param is the offending parameter, empty for space-level problems.
	Param string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *SearchSpaceError) Error() string {
	if e.Param == "" {
		return "search space: " + e.Message
	}
	return fmt.Sprintf("search space parameter %q: %s", e.Param, e.Message)
}

// IsSearchSpaceError returns true if err is or wraps a *SearchSpaceError.
func IsSearchSpaceError(err error) bool {
	var se *SearchSpaceError
	return errors.As(err, &se)
}

func paramError(param, format string, args ...any) *SearchSpaceError {
	return &SearchSpaceError{Param: param, Message: fmt.Sprintf(format, args...)}
}

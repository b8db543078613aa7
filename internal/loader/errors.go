package loader

import (
	"errors"
	"fmt"
)

// Error codes for document loading.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeReadFailed   = "E002" // File read error
	ErrCodeFormat       = "E003" // Unsupported file extension
	ErrCodeParseFailed  = "E004" // Syntax error
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE evaluation or HCL expression error
	ErrCodeShape        = "E201" // Top level is not a mapping
	ErrCodeDuplicateKey = "E202" // Key declared twice
	ErrCodeValue        = "E203" // Value has no configuration equivalent
)

// LoadError is a document that could not be turned into configuration data.
type LoadError struct {
	Code    string
	Path    string
	Line    int // 1-based, 0 when unknown
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Path, e.Line, e.Column, e.Code, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsLoadError returns true if err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

func loadErrorf(code, path string, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

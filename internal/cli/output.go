package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/engine"
	"github.com/roach88/sweep/internal/loader"
	"github.com/roach88/sweep/internal/space"
)

// Exit codes for CLI commands.
const (
	ExitSuccess            = 0 // Successful execution
	ExitFailure            = 1 // Generic failure (interrupted run, I/O error, etc.)
	ExitCommandError       = 2 // Command error (bad flags, missing files, unreadable documents)
	ExitConfigError        = 3 // Layers could not be merged
	ExitSearchSpaceError   = 4 // Search space is malformed
	ExitNoSuccessfulTrials = 5 // Every trial failed or never started
	ExitWorkerPoolError    = 6 // Worker pool could not be built
)

// Error codes reported in CLIError.Code for the sweep error taxonomy.
const (
	CodeConfig             = "CONFIG"
	CodeSearchSpace        = "SEARCH_SPACE"
	CodeNoSuccessfulTrials = "NO_SUCCESSFUL_TRIALS"
	CodeInterrupted        = "INTERRUPTED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// An ExitError carries its own code; the sweep error types map to their
// dedicated codes; anything else is ExitFailure (1).
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	switch {
	case compose.IsConfigError(err):
		return ExitConfigError
	case space.IsSearchSpaceError(err):
		return ExitSearchSpaceError
	case aggregate.IsNoSuccessfulTrials(err):
		return ExitNoSuccessfulTrials
	case engine.IsWorkerPoolError(err):
		return ExitWorkerPoolError
	case loader.IsLoadError(err):
		return ExitCommandError
	default:
		return ExitFailure
	}
}

// errorCode names err for CLIError.Code.
func errorCode(err error) string {
	var le *loader.LoadError
	var we *engine.WorkerPoolError
	switch {
	case errors.As(err, &le):
		return le.Code
	case errors.As(err, &we):
		return string(we.Code)
	case compose.IsConfigError(err):
		return CodeConfig
	case space.IsSearchSpaceError(err):
		return CodeSearchSpace
	case aggregate.IsNoSuccessfulTrials(err):
		return CodeNoSuccessfulTrials
	default:
		return loader.ErrCodeGeneric
	}
}

// classify reports err through the formatter and wraps it with the exit
// code for its type.
func classify(f *OutputFormatter, message string, err error) error {
	_ = f.Error(errorCode(err), fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(GetExitCode(err), message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`            // "ok" or "error"
	Data    interface{} `json:"data,omitempty"`    // success payload
	Error   *CLIError   `json:"error,omitempty"`   // error details
	TraceID string      `json:"trace_id,omitempty"` // optional trace correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

package objective

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// Built-in objective names.
const (
	NamePolynomial = "polynomial"
	NameExec       = "exec"
	NameConstant   = "constant"
)

// Options configures Lookup.
type Options struct {
	// Command is the argv for the exec objective.
	Command []string

	// Dir is the working directory for the exec objective.
	Dir string

	// Value is what the constant objective returns.
	Value ir.Value

	Logger *slog.Logger
}

// Names lists the built-in objectives.
func Names() []string {
	return []string{NameConstant, NameExec, NamePolynomial}
}

// Lookup returns the named objective.
func Lookup(name string, opts Options) (trial.Objective, error) {
	switch name {
	case NamePolynomial:
		return Polynomial{}, nil
	case NameExec:
		if len(opts.Command) == 0 || opts.Command[0] == "" {
			return nil, fmt.Errorf("objective %q needs a command", name)
		}
		return &Exec{Command: slices.Clone(opts.Command), Dir: opts.Dir, Logger: opts.Logger}, nil
	case NameConstant:
		v := opts.Value
		if v == nil {
			v = ir.Int(0)
		}
		return Constant{Value: v}, nil
	default:
		return nil, fmt.Errorf("unknown objective %q (have %v)", name, Names())
	}
}

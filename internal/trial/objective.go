package trial

import (
	"context"

	"github.com/roach88/sweep/internal/ir"
)

// Objective evaluates one configuration and returns a numeric score.
// Any non-numeric value is recorded as a failure. Implementations should
// return promptly once ctx is cancelled.
type Objective interface {
	Evaluate(ctx context.Context, cfg ir.Object) (ir.Value, error)
}

// ObjectiveFunc adapts a function to the Objective interface.
type ObjectiveFunc func(ctx context.Context, cfg ir.Object) (ir.Value, error)

// Evaluate implements Objective.
func (f ObjectiveFunc) Evaluate(ctx context.Context, cfg ir.Object) (ir.Value, error) {
	return f(ctx, cfg)
}

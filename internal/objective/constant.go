package objective

import (
	"context"

	"github.com/roach88/sweep/internal/ir"
)

// Constant ignores the configuration and returns Value.
type Constant struct {
	Value ir.Value
}

// Evaluate implements trial.Objective.
func (c Constant) Evaluate(ctx context.Context, _ ir.Object) (ir.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ir.Clone(c.Value), nil
}

package objective

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/sweep/internal/ir"
)

// Polynomial keys.
const (
	KeyExponent = "exponent"
	KeyOffset   = "offset"
	KeyMinVal   = "min_val"
	KeyMaxVal   = "max_val"
)

// PolynomialDefaults is the base configuration the polynomial objective is
// usually swept from.
func PolynomialDefaults() ir.Object {
	return ir.Obj(
		ir.O(KeyExponent, ir.Int(2)),
		ir.O(KeyOffset, ir.Int(10)),
		ir.O(KeyMinVal, ir.Int(0)),
		ir.O(KeyMaxVal, ir.Int(5)),
	)
}

// Polynomial evaluates (max_val - min_val) ^ exponent + offset.
type Polynomial struct{}

// Evaluate implements trial.Objective.
func (Polynomial) Evaluate(ctx context.Context, cfg ir.Object) (ir.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var vals [4]float64
	for i, key := range [...]string{KeyExponent, KeyOffset, KeyMinVal, KeyMaxVal} {
		v, ok := cfg[key]
		if !ok {
			return nil, fmt.Errorf("polynomial: missing %q", key)
		}
		f, ok := ir.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("polynomial: %s must be a number, got %s", key, ir.Kind(v))
		}
		vals[i] = f
	}
	exponent, offset, lo, hi := vals[0], vals[1], vals[2], vals[3]

	return ir.Float(math.Pow(hi-lo, exponent) + offset), nil
}

package space

import (
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/exp/constraints"

	"github.com/roach88/sweep/internal/ir"
)

// Distribution draws values for a Sampled domain.
type Distribution interface {
	// Name is the distribution's document name ("uniform", "randint", ...).
	Name() string

	// Validate reports parameters that make the distribution unusable.
	Validate() error

	// Sample draws one value.
	Sample(r *rand.Rand) ir.Value
}

// Range is an inclusive numeric interval.
type Range[T constraints.Integer | constraints.Float] struct {
	Low  T
	High T
}

func (r Range[T]) check(strict bool) error {
	if r.Low > r.High || (strict && r.Low == r.High) {
		return fmt.Errorf("low (%v) must be less than high (%v)", r.Low, r.High)
	}
	return nil
}

// Uniform draws floats uniformly from [Low, High]. High itself is only
// reached through rounding.
type Uniform struct{ Range[float64] }

// Name implements Distribution.
func (Uniform) Name() string { return "uniform" }

// Validate implements Distribution.
func (u Uniform) Validate() error {
	if !finite(u.Low) || !finite(u.High) {
		return fmt.Errorf("bounds must be finite")
	}
	if err := u.check(true); err != nil {
		return err
	}
	if !finite(u.High - u.Low) {
		return fmt.Errorf("range [%v, %v] is too wide", u.Low, u.High)
	}
	return nil
}

// Sample implements Distribution.
func (u Uniform) Sample(r *rand.Rand) ir.Value {
	return ir.Float(clamp(u.Low+r.Float64()*(u.High-u.Low), u.Low, u.High))
}

// LogUniform draws floats whose logarithm is uniform on [log Low, log High].
type LogUniform struct{ Range[float64] }

// Name implements Distribution.
func (LogUniform) Name() string { return "loguniform" }

// Validate implements Distribution.
func (u LogUniform) Validate() error {
	if !finite(u.Low) || !finite(u.High) || u.Low <= 0 {
		return fmt.Errorf("bounds must be finite and positive")
	}
	return u.check(true)
}

// Sample implements Distribution.
func (u LogUniform) Sample(r *rand.Rand) ir.Value {
	lo, hi := math.Log(u.Low), math.Log(u.High)
	return ir.Float(clamp(math.Exp(lo+r.Float64()*(hi-lo)), u.Low, u.High))
}

// RandInt draws integers uniformly from [Low, High], both inclusive.
type RandInt struct{ Range[int64] }

// Name implements Distribution.
func (RandInt) Name() string { return "randint" }

// Validate implements Distribution.
func (d RandInt) Validate() error {
	if err := d.check(false); err != nil {
		return err
	}
	if d.High-d.Low < 0 || d.High-d.Low == math.MaxInt64 {
		return fmt.Errorf("range [%d, %d] is too wide", d.Low, d.High)
	}
	return nil
}

// Sample implements Distribution.
func (d RandInt) Sample(r *rand.Rand) ir.Value {
	return ir.Int(d.Low + r.Int64N(d.High-d.Low+1))
}

// Choice picks one of Values uniformly.
type Choice struct {
	Values []ir.Value
}

// Name implements Distribution.
func (Choice) Name() string { return "choice" }

// Validate implements Distribution.
func (c Choice) Validate() error {
	if len(c.Values) == 0 {
		return fmt.Errorf("choice needs at least one value")
	}
	return nil
}

// Sample implements Distribution.
func (c Choice) Sample(r *rand.Rand) ir.Value {
	return ir.Clone(c.Values[r.IntN(len(c.Values))])
}

// Normal draws floats from a Gaussian with the given mean and standard deviation.
type Normal struct {
	Mean float64
	Std  float64
}

// Name implements Distribution.
func (Normal) Name() string { return "normal" }

// Validate implements Distribution.
func (n Normal) Validate() error {
	if !finite(n.Mean) || !finite(n.Std) || n.Std <= 0 {
		return fmt.Errorf("mean must be finite and std positive")
	}
	return nil
}

// Sample implements Distribution.
func (n Normal) Sample(r *rand.Rand) ir.Value {
	return ir.Float(n.Mean + n.Std*r.NormFloat64())
}

// clamp bounds v to [lo, hi].
func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// pcgStream is a fixed PCG stream selector so that a seed alone determines
// the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// newRNG returns the deterministic generator for a seed.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), pcgStream))
}

// Draw returns count values from dist seeded with seed.
func Draw(dist Distribution, count int, seed int64) []ir.Value {
	r := newRNG(seed)
	out := make([]ir.Value, count)
	for i := range out {
		out[i] = dist.Sample(r)
	}
	return out
}

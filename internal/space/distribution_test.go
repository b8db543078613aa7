package space

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/roach88/sweep/internal/ir"
)

func TestDraw_SameSeedSameSequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		count := rapid.IntRange(1, 20).Draw(t, "count")

		dists := []Distribution{
			Uniform{Range[float64]{Low: -1, High: 1}},
			LogUniform{Range[float64]{Low: 1e-3, High: 10}},
			RandInt{Range[int64]{Low: -5, High: 5}},
			Choice{Values: []ir.Value{ir.String("a"), ir.String("b")}},
			Normal{Mean: 0, Std: 2},
		}
		for _, d := range dists {
			assert.Equal(t, Draw(d, count, seed), Draw(d, count, seed), d.Name())
		}
	})
}

func TestDraw_StaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Float64Range(-100, 100).Draw(t, "lo")
		width := rapid.Float64Range(1e-6, 100).Draw(t, "width")
		seed := rapid.Int64().Draw(t, "seed")

		for _, v := range Draw(Uniform{Range[float64]{Low: lo, High: lo + width}}, 10, seed) {
			f := float64(v.(ir.Float))
			if f < lo || f > lo+width {
				t.Fatalf("uniform draw %v outside [%v, %v]", f, lo, lo+width)
			}
		}

		ilo := rapid.Int64Range(-1000, 1000).Draw(t, "ilo")
		ihi := ilo + rapid.Int64Range(0, 10).Draw(t, "span")
		for _, v := range Draw(RandInt{Range[int64]{Low: ilo, High: ihi}}, 10, seed) {
			n := int64(v.(ir.Int))
			if n < ilo || n > ihi {
				t.Fatalf("randint draw %d outside [%d, %d]", n, ilo, ihi)
			}
		}
	})
}

func TestRandInt_DegenerateRange(t *testing.T) {
	d := RandInt{Range[int64]{Low: 3, High: 3}}
	assert.NoError(t, d.Validate())
	assert.Equal(t, []ir.Value{ir.Int(3), ir.Int(3)}, Draw(d, 2, 0))

	wide := RandInt{Range[int64]{Low: math.MinInt64, High: math.MaxInt64}}
	assert.Error(t, wide.Validate())
}

func TestChoice_ClonesValues(t *testing.T) {
	shared := ir.Object{"k": ir.Int(1)}
	vals := Draw(Choice{Values: []ir.Value{shared}}, 2, 1)

	vals[0].(ir.Object)["k"] = ir.Int(2)
	assert.Equal(t, ir.Int(1), shared["k"])
	assert.Equal(t, ir.Int(1), vals[1].(ir.Object)["k"])
}

func TestValidate_NonFinite(t *testing.T) {
	assert.Error(t, Uniform{Range[float64]{Low: math.Inf(-1), High: 0}}.Validate())
	assert.Error(t, Normal{Mean: math.NaN(), Std: 1}.Validate())
}

func TestUniform_WidthMustBeFinite(t *testing.T) {
	wide := Uniform{Range[float64]{Low: -math.MaxFloat64, High: math.MaxFloat64}}
	err := wide.Validate()
	assert.ErrorContains(t, err, "too wide")

	half := Uniform{Range[float64]{Low: 0, High: math.MaxFloat64}}
	assert.NoError(t, half.Validate())
	for _, v := range Draw(half, 20, 7) {
		f := float64(v.(ir.Float))
		assert.False(t, math.IsNaN(f))
		assert.True(t, f >= 0 && f <= math.MaxFloat64, "draw %v out of range", f)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(1.5, 0.0, 1.0))
	assert.Equal(t, int64(-2), clamp(int64(-7), -2, 2))
	assert.Equal(t, 3, clamp(3, 0, 5))
}

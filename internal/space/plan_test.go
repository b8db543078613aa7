package space

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/sweep/internal/ir"
)

func ints(ns ...int64) []ir.Value {
	out := make([]ir.Value, len(ns))
	for i, n := range ns {
		out[i] = ir.Int(n)
	}
	return out
}

func TestExpand_FixedOnly(t *testing.T) {
	got, err := Expand(New(
		Param{Name: "offset", Domain: Fixed{Value: ir.Int(10)}},
		Param{Name: "name", Domain: Fixed{Value: ir.String("poly")}},
	))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(0), got[0].TrialID)
	assert.Equal(t, ir.Object{"offset": ir.Int(10), "name": ir.String("poly")}, got[0].Values)
}

func TestExpand_SingleGridKeepsOrder(t *testing.T) {
	got, err := Expand(New(Param{Name: "exponent", Domain: Grid{Values: ints(1, 2, 4, 8)}}))
	require.NoError(t, err)
	require.Len(t, got, 4)

	for i, want := range []int64{1, 2, 4, 8} {
		assert.Equal(t, int64(i), got[i].TrialID)
		assert.Equal(t, ir.Object{"exponent": ir.Int(want)}, got[i].Values)
	}
}

func TestExpand_GridFirstDeclaredSlowest(t *testing.T) {
	got, err := Expand(New(
		Param{Name: "a", Domain: Grid{Values: ints(1, 2)}},
		Param{Name: "b", Domain: Grid{Values: []ir.Value{ir.String("x"), ir.String("y")}}},
		Param{Name: "c", Domain: Fixed{Value: ir.Bool(true)}},
	))
	require.NoError(t, err)

	want := []ir.Object{
		{"a": ir.Int(1), "b": ir.String("x"), "c": ir.Bool(true)},
		{"a": ir.Int(1), "b": ir.String("y"), "c": ir.Bool(true)},
		{"a": ir.Int(2), "b": ir.String("x"), "c": ir.Bool(true)},
		{"a": ir.Int(2), "b": ir.String("y"), "c": ir.Bool(true)},
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i].Values, "trial %d", i)
	}
}

func TestExpand_DottedNamesNest(t *testing.T) {
	got, err := Expand(New(
		Param{Name: "optimizer.lr", Domain: Grid{Values: []ir.Value{ir.Float(0.1)}}},
		Param{Name: "optimizer.name", Domain: Fixed{Value: ir.String("sgd")}},
	))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ir.Object{"optimizer": ir.Object{"lr": ir.Float(0.1), "name": ir.String("sgd")}}, got[0].Values)
	assert.Equal(t, "assignment", got[0].Layer().Name)
}

func TestExpand_SampledDeterministic(t *testing.T) {
	s := New(Param{Name: "lr", Domain: Sampled{Dist: LogUniform{Range[float64]{Low: 1e-4, High: 1e-1}}, Count: 5, Seed: 42}})

	first, err := Expand(s)
	require.NoError(t, err)
	second, err := Expand(s)
	require.NoError(t, err)

	require.Len(t, first, 5)
	assert.Equal(t, first, second)

	for _, a := range first {
		lr := float64(a.Values["lr"].(ir.Float))
		assert.GreaterOrEqual(t, lr, 1e-4)
		assert.LessOrEqual(t, lr, 1e-1)
	}

	other, err := Expand(New(Param{Name: "lr", Domain: Sampled{Dist: LogUniform{Range[float64]{Low: 1e-4, High: 1e-1}}, Count: 5, Seed: 43}}))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestExpand_GridTimesSampleRows(t *testing.T) {
	got, err := Expand(New(
		Param{Name: "layers", Domain: Grid{Values: ints(1, 2)}},
		Param{Name: "lr", Domain: Sampled{Dist: Uniform{Range[float64]{Low: 0, High: 1}}, Count: 3, Seed: 7}},
		Param{Name: "batch", Domain: Sampled{Dist: Choice{Values: ints(16, 32, 64)}, Count: 3, Seed: 9}},
	))
	require.NoError(t, err)
	require.Len(t, got, 6)

	lrs := Draw(Uniform{Range[float64]{Low: 0, High: 1}}, 3, 7)
	batches := Draw(Choice{Values: ints(16, 32, 64)}, 3, 9)
	for i, a := range got {
		assert.Equal(t, ir.Int(int64(i/3+1)), a.Values["layers"], "trial %d", i)
		assert.Equal(t, lrs[i%3], a.Values["lr"], "trial %d", i)
		assert.Equal(t, batches[i%3], a.Values["batch"], "trial %d", i)
	}
}

func TestExpand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		space SearchSpace
		param string
	}{
		{"empty space", New(), ""},
		{"empty grid", New(Param{Name: "a", Domain: Grid{}}), "a"},
		{"zero count", New(Param{Name: "a", Domain: Sampled{Dist: Uniform{Range[float64]{0, 1}}, Count: 0}}), "a"},
		{"negative count", New(Param{Name: "a", Domain: Sampled{Dist: Uniform{Range[float64]{0, 1}}, Count: -2}}), "a"},
		{"no distribution", New(Param{Name: "a", Domain: Sampled{Count: 2}}), "a"},
		{"inverted bounds", New(Param{Name: "a", Domain: Sampled{Dist: Uniform{Range[float64]{2, 1}}, Count: 2}}), "a"},
		{"loguniform at zero", New(Param{Name: "a", Domain: Sampled{Dist: LogUniform{Range[float64]{0, 1}}, Count: 2}}), "a"},
		{"empty choice", New(Param{Name: "a", Domain: Sampled{Dist: Choice{}, Count: 2}}), "a"},
		{"bad std", New(Param{Name: "a", Domain: Sampled{Dist: Normal{Mean: 0, Std: 0}, Count: 2}}), "a"},
		{"missing fixed value", New(Param{Name: "a", Domain: Fixed{}}), "a"},
		{"duplicate name", New(
			Param{Name: "a", Domain: Fixed{Value: ir.Int(1)}},
			Param{Name: "a", Domain: Fixed{Value: ir.Int(2)}},
		), "a"},
		{"prefix conflict", New(
			Param{Name: "opt", Domain: Fixed{Value: ir.Int(1)}},
			Param{Name: "opt.lr", Domain: Fixed{Value: ir.Int(2)}},
		), "opt.lr"},
		{"bad name", New(Param{Name: "a..b", Domain: Fixed{Value: ir.Int(1)}}), "a..b"},
		{"mismatched counts", New(
			Param{Name: "x", Domain: Sampled{Dist: Uniform{Range[float64]{0, 1}}, Count: 2}},
			Param{Name: "y", Domain: Sampled{Dist: Uniform{Range[float64]{0, 1}}, Count: 3}},
		), "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.space)
			require.Error(t, err)
			assert.True(t, IsSearchSpaceError(err))

			var se *SearchSpaceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.param, se.Param)
		})
	}
}

func TestExpand_TooLarge(t *testing.T) {
	big := make([]ir.Value, 1024)
	for i := range big {
		big[i] = ir.Int(int64(i))
	}
	_, err := Expand(New(
		Param{Name: "a", Domain: Grid{Values: big}},
		Param{Name: "b", Domain: Grid{Values: big}},
		Param{Name: "c", Domain: Grid{Values: big[:2]}},
	))
	assert.True(t, IsSearchSpaceError(err))
}

func TestPlan_AtOutOfRangePanics(t *testing.T) {
	p, err := NewPlan(New(Param{Name: "a", Domain: Grid{Values: ints(1, 2)}}))
	require.NoError(t, err)
	assert.Panics(t, func() { p.At(2) })
	assert.Panics(t, func() { p.At(-1) })
}

func TestPlan_AssignmentsAreIndependent(t *testing.T) {
	shared := ir.Object{"inner": ir.Int(1)}
	p, err := NewPlan(New(Param{Name: "a", Domain: Fixed{Value: shared}}))
	require.NoError(t, err)

	a := p.At(0)
	a.Values["a"].(ir.Object)["inner"] = ir.Int(2)

	assert.Equal(t, ir.Int(1), p.At(0).Values["a"].(ir.Object)["inner"])
	assert.Equal(t, ir.Int(1), shared["inner"])
}

func TestSearchSpaceError_Message(t *testing.T) {
	assert.Equal(t, `search space parameter "a": grid has no values`,
		(&SearchSpaceError{Param: "a", Message: "grid has no values"}).Error())
	assert.Equal(t, "search space: no parameters declared",
		(&SearchSpaceError{Message: "no parameters declared"}).Error())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "fixed(10)", Describe(Fixed{Value: ir.Int(10)}))
	assert.Equal(t, "grid(3 values)", Describe(Grid{Values: ints(1, 2, 3)}))
	assert.Equal(t, "sampled(normal, count=4, seed=1)", Describe(Sampled{Dist: Normal{Mean: 0, Std: 1}, Count: 4, Seed: 1}))
}

// Cardinality is the product of the grid lengths times the sample count, and
// At enumerates the product in nested-loop order.
func TestPlan_CardinalityAndOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lengths := rapid.SliceOfN(rapid.IntRange(1, 4), 1, 4).Draw(t, "lengths")
		count := rapid.IntRange(0, 3).Draw(t, "count")

		params := make([]Param, 0, len(lengths)+1)
		want := 1
		for g, n := range lengths {
			vals := make([]ir.Value, n)
			for i := range vals {
				vals[i] = ir.Int(int64(i))
			}
			params = append(params, Param{Name: string(rune('a' + g)), Domain: Grid{Values: vals}})
			want *= n
		}
		if count > 0 {
			params = append(params, Param{Name: "s", Domain: Sampled{Dist: RandInt{Range[int64]{0, 100}}, Count: count, Seed: 1}})
			want *= count
		}

		p, err := NewPlan(New(params...))
		require.NoError(t, err)
		require.Equal(t, want, p.Len())

		rows := max(count, 1)
		for i := 0; i < p.Len(); i++ {
			a := p.At(i)
			require.Equal(t, int64(i), a.TrialID)

			// Reconstruct the index from the digits, first axis most significant.
			idx := 0
			for g, n := range lengths {
				d := int64(a.Values[string(rune('a'+g))].(ir.Int))
				idx = idx*n + int(d)
			}
			require.Equal(t, i/rows, idx)
		}
	})
}

package loader

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/space"
)

// Domain keys in a search-space document.
const (
	keyFixed   = "fixed"
	keyGrid    = "grid"
	keySampled = "sampled"
)

// ParseSearchSpace reads one parameter per top-level key, in declaration
// order. Each value is a mapping with exactly one of:
//
//	{fixed: <value>}
//	{grid: [<value>, ...]}
//	{sampled: {distribution: uniform|loguniform|randint|choice|normal,
//	           low, high, values, mean, std, count, seed}}
//
// count defaults to 1 and seed to 0. Shape errors are reported as
// *space.SearchSpaceError; bounds and counts are checked by space.NewPlan.
func ParseSearchSpace(doc *Document) (space.SearchSpace, error) {
	params := make([]space.Param, 0, len(doc.Keys))
	for _, name := range doc.Keys {
		d, err := parseDomain(name, doc.Values[name])
		if err != nil {
			return space.SearchSpace{}, err
		}
		params = append(params, space.Param{Name: name, Domain: d})
	}
	return space.New(params...), nil
}

func parseDomain(name string, v ir.Value) (space.Domain, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, spaceError(name, "expected a mapping with one of fixed, grid or sampled, got %s", ir.Kind(v))
	}
	if len(obj) != 1 {
		return nil, spaceError(name, "expected exactly one of fixed, grid or sampled, got keys %v", obj.SortedKeys())
	}

	switch {
	case has(obj, keyFixed):
		return space.Fixed{Value: obj[keyFixed]}, nil

	case has(obj, keyGrid):
		arr, ok := obj[keyGrid].(ir.Array)
		if !ok {
			return nil, spaceError(name, "grid must be a list, got %s", ir.Kind(obj[keyGrid]))
		}
		return space.Grid{Values: slices.Clone(arr)}, nil

	case has(obj, keySampled):
		spec, ok := obj[keySampled].(ir.Object)
		if !ok {
			return nil, spaceError(name, "sampled must be a mapping, got %s", ir.Kind(obj[keySampled]))
		}
		return parseSampled(name, spec)

	default:
		return nil, spaceError(name, "unknown domain %q", obj.SortedKeys()[0])
	}
}

func parseSampled(name string, spec ir.Object) (space.Domain, error) {
	f := fields{param: name, obj: spec}

	count := f.getInt("count", 1)
	seed := f.getInt("seed", 0)
	distName := f.getString("distribution")

	var dist space.Distribution
	switch distName {
	case "uniform":
		dist = space.Uniform{Range: space.Range[float64]{Low: f.getFloat("low"), High: f.getFloat("high")}}
	case "loguniform":
		dist = space.LogUniform{Range: space.Range[float64]{Low: f.getFloat("low"), High: f.getFloat("high")}}
	case "randint":
		f.require("low", "high")
		dist = space.RandInt{Range: space.Range[int64]{Low: f.getInt("low", 0), High: f.getInt("high", 0)}}
	case "choice":
		dist = space.Choice{Values: f.getArray("values")}
	case "normal":
		dist = space.Normal{Mean: f.getFloat("mean"), Std: f.getFloat("std")}
	case "":
		// reported by f.string
	default:
		f.fail("unknown distribution %q", distName)
	}
	if f.err != nil {
		return nil, f.err
	}
	if count > math.MaxInt32 {
		return nil, spaceError(name, "count %d too large", count)
	}
	return space.Sampled{Dist: dist, Count: int(count), Seed: seed}, nil
}

// fields reads typed keys from a sampled spec, keeping the first error.
type fields struct {
	param string
	obj   ir.Object
	err   error
}

func (f *fields) fail(format string, args ...any) {
	if f.err == nil {
		f.err = spaceError(f.param, format, args...)
	}
}

func (f *fields) require(keys ...string) {
	for _, k := range keys {
		if !has(f.obj, k) {
			f.fail("sampled: missing %q", k)
		}
	}
}

func (f *fields) getString(key string) string {
	v, ok := f.obj[key]
	if !ok {
		f.fail("sampled: missing %q", key)
		return ""
	}
	s, ok := v.(ir.String)
	if !ok {
		f.fail("sampled: %s must be a string, got %s", key, ir.Kind(v))
		return ""
	}
	return string(s)
}

func (f *fields) getFloat(key string) float64 {
	v, ok := f.obj[key]
	if !ok {
		f.fail("sampled: missing %q", key)
		return 0
	}
	n, ok := ir.AsFloat(v)
	if !ok {
		f.fail("sampled: %s must be a number, got %s", key, ir.Kind(v))
	}
	return n
}

func (f *fields) getInt(key string, def int64) int64 {
	v, ok := f.obj[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case ir.Int:
		return int64(n)
	case ir.Float:
		if float64(n) == math.Trunc(float64(n)) && math.Abs(float64(n)) < 1<<53 {
			return int64(n)
		}
	}
	f.fail("sampled: %s must be an integer, got %s", key, describeValue(v))
	return def
}

func (f *fields) getArray(key string) []ir.Value {
	v, ok := f.obj[key]
	if !ok {
		f.fail("sampled: missing %q", key)
		return nil
	}
	arr, ok := v.(ir.Array)
	if !ok {
		f.fail("sampled: %s must be a list, got %s", key, ir.Kind(v))
		return nil
	}
	return slices.Clone(arr)
}

func has(obj ir.Object, key string) bool {
	_, ok := obj[key]
	return ok
}

func describeValue(v ir.Value) string {
	if n, ok := ir.AsFloat(v); ok {
		return fmt.Sprintf("%v", n)
	}
	return ir.Kind(v)
}

func spaceError(param, format string, args ...any) *space.SearchSpaceError {
	return &space.SearchSpaceError{Param: param, Message: fmt.Sprintf(format, args...)}
}

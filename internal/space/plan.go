package space

import (
	"fmt"
	"iter"
	"strings"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/ir"
)

// MaxTrials bounds the number of trials a single space may expand to.
const MaxTrials = 1 << 20

// Assignment is the override layer for one trial.
type Assignment struct {
	// TrialID is the 0-based position in expansion order.
	TrialID int64

	// Values holds the chosen value for every parameter, with dotted
	// parameter names expanded into nested objects.
	Values ir.Object
}

// Layer returns the assignment as the last layer of a merge stack.
func (a Assignment) Layer() compose.Layer {
	return compose.NewLayer(compose.LayerAssignment, a.Values)
}

type gridAxis struct {
	path   []string
	values []ir.Value
}

// Plan is a validated, restartable expansion of a SearchSpace.
type Plan struct {
	fixed   []gridAxis // one value each
	grid    []gridAxis // declaration order, first is slowest
	sampled []gridAxis // pre-drawn, all of length rows
	rows    int
	size    int
}

// NewPlan validates the space and prepares its expansion. All sampled
// values are drawn here, so At is a pure function of its index.
func NewPlan(s SearchSpace) (*Plan, error) {
	if len(s.Params) == 0 {
		return nil, &SearchSpaceError{Message: "no parameters declared"}
	}
	if err := checkNames(s.Params); err != nil {
		return nil, err
	}

	p := &Plan{rows: 1, size: 1}
	sampleCount := -1
	var firstSampled string

	for _, param := range s.Params {
		path := strings.Split(param.Name, ".")
		switch dom := param.Domain.(type) {
		case Fixed:
			if dom.Value == nil {
				return nil, paramError(param.Name, "fixed value is missing")
			}
			p.fixed = append(p.fixed, gridAxis{path: path, values: []ir.Value{dom.Value}})

		case Grid:
			if len(dom.Values) == 0 {
				return nil, paramError(param.Name, "grid has no values")
			}
			if p.size > MaxTrials/len(dom.Values) {
				return nil, paramError(param.Name, "search space exceeds %d trials", MaxTrials)
			}
			p.size *= len(dom.Values)
			p.grid = append(p.grid, gridAxis{path: path, values: dom.Values})

		case Sampled:
			if dom.Dist == nil {
				return nil, paramError(param.Name, "sampled domain has no distribution")
			}
			if dom.Count <= 0 {
				return nil, paramError(param.Name, "sample count must be positive, got %d", dom.Count)
			}
			if err := dom.Dist.Validate(); err != nil {
				return nil, paramError(param.Name, "%s: %v", dom.Dist.Name(), err)
			}
			if sampleCount >= 0 && dom.Count != sampleCount {
				return nil, paramError(param.Name,
					"sample count %d differs from %d declared by %q; sampled parameters are zipped and must agree",
					dom.Count, sampleCount, firstSampled)
			}
			if sampleCount < 0 {
				sampleCount, firstSampled = dom.Count, param.Name
			}
			p.sampled = append(p.sampled, gridAxis{path: path, values: Draw(dom.Dist, dom.Count, dom.Seed)})

		default:
			return nil, paramError(param.Name, "unknown domain %T", param.Domain)
		}
	}

	if sampleCount > 0 {
		if p.size > MaxTrials/sampleCount {
			return nil, &SearchSpaceError{Message: fmt.Sprintf("search space exceeds %d trials", MaxTrials)}
		}
		p.rows = sampleCount
		p.size *= sampleCount
	}
	return p, nil
}

// checkNames rejects empty, duplicate and prefix-conflicting parameter
// names ("a" together with "a.b").
func checkNames(params []Param) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" || strings.HasPrefix(p.Name, ".") || strings.HasSuffix(p.Name, ".") || strings.Contains(p.Name, "..") {
			return paramError(p.Name, "invalid parameter name")
		}
		if seen[p.Name] {
			return paramError(p.Name, "declared more than once")
		}
		seen[p.Name] = true
	}
	for _, p := range params {
		parts := strings.Split(p.Name, ".")
		for i := 1; i < len(parts); i++ {
			prefix := strings.Join(parts[:i], ".")
			if seen[prefix] {
				return paramError(p.Name, "conflicts with parameter %q", prefix)
			}
		}
	}
	return nil
}

// Len returns the number of trials in the plan.
func (p *Plan) Len() int {
	return p.size
}

// At returns the assignment for trial i, 0 <= i < Len().
func (p *Plan) At(i int) Assignment {
	if i < 0 || i >= p.size {
		panic(fmt.Sprintf("space: trial index %d out of range [0, %d)", i, p.size))
	}

	values := ir.Object{}
	for _, axis := range p.fixed {
		setPath(values, axis.path, axis.values[0])
	}

	// Mixed-radix decode: the last grid axis is the fastest digit.
	point, row := i/p.rows, i%p.rows
	digits := make([]int, len(p.grid))
	for g := len(p.grid) - 1; g >= 0; g-- {
		n := len(p.grid[g].values)
		digits[g] = point % n
		point /= n
	}
	for g, axis := range p.grid {
		setPath(values, axis.path, axis.values[digits[g]])
	}

	for _, axis := range p.sampled {
		setPath(values, axis.path, axis.values[row])
	}

	return Assignment{TrialID: int64(i), Values: values}
}

// All yields every assignment in trial id order.
func (p *Plan) All() iter.Seq[Assignment] {
	return func(yield func(Assignment) bool) {
		for i := 0; i < p.size; i++ {
			if !yield(p.At(i)) {
				return
			}
		}
	}
}

// Expand validates the space and returns every assignment in order.
func Expand(s SearchSpace) ([]Assignment, error) {
	p, err := NewPlan(s)
	if err != nil {
		return nil, err
	}
	out := make([]Assignment, 0, p.Len())
	for a := range p.All() {
		out = append(out, a)
	}
	return out, nil
}

// setPath stores a clone of v at the nested key path, creating
// intermediate objects as needed. checkNames guarantees no path is a
// prefix of another.
func setPath(obj ir.Object, path []string, v ir.Value) {
	for _, key := range path[:len(path)-1] {
		child, ok := obj[key].(ir.Object)
		if !ok {
			child = ir.Object{}
			obj[key] = child
		}
		obj = child
	}
	obj[path[len(path)-1]] = ir.Clone(v)
}

package space

import (
	"fmt"

	"github.com/roach88/sweep/internal/ir"
)

// Domain is a sealed variant describing where a parameter's values come from.
// Only Fixed, Grid and Sampled implement it.
type Domain interface {
	domain()

	// Kind names the variant: "fixed", "grid" or "sampled".
	Kind() string
}

// Fixed binds the parameter to a single value in every trial.
type Fixed struct {
	Value ir.Value
}

func (Fixed) domain() {}

// Kind implements Domain.
func (Fixed) Kind() string { return "fixed" }

// Grid enumerates an explicit ordered list of values.
type Grid struct {
	Values []ir.Value
}

func (Grid) domain() {}

// Kind implements Domain.
func (Grid) Kind() string { return "grid" }

// Sampled draws Count values from Dist using an RNG seeded with Seed.
type Sampled struct {
	Dist  Distribution
	Count int
	Seed  int64
}

func (Sampled) domain() {}

// Kind implements Domain.
func (Sampled) Kind() string { return "sampled" }

// Param binds a name to a domain. Dotted names ("optimizer.lr") address
// nested keys of the configuration.
type Param struct {
	Name   string
	Domain Domain
}

// SearchSpace is an ordered list of parameters. Declaration order is
// significant: it fixes the order of the grid product.
type SearchSpace struct {
	Params []Param
}

// New builds a SearchSpace from params in the order given.
func New(params ...Param) SearchSpace {
	return SearchSpace{Params: params}
}

// Names returns the parameter names in declaration order.
func (s SearchSpace) Names() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Describe renders a domain for logs and dry-run output.
func Describe(d Domain) string {
	switch dom := d.(type) {
	case Fixed:
		return fmt.Sprintf("fixed(%s)", render(dom.Value))
	case Grid:
		return fmt.Sprintf("grid(%d values)", len(dom.Values))
	case Sampled:
		name := "<nil>"
		if dom.Dist != nil {
			name = dom.Dist.Name()
		}
		return fmt.Sprintf("sampled(%s, count=%d, seed=%d)", name, dom.Count, dom.Seed)
	default:
		return fmt.Sprintf("%T", d)
	}
}

func render(v ir.Value) string {
	b, err := ir.MarshalValue(v)
	if err != nil {
		return ir.Kind(v)
	}
	return string(b)
}

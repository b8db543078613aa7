package compose

import "github.com/roach88/sweep/internal/ir"

// Well-known layer names.
const (
	LayerBase       = "base"
	LayerAssignment = "assignment"
)

// Layer is one named mapping in the merge stack.
type Layer struct {
	// Name identifies the layer in error messages ("base", a preset name,
	// or "assignment").
	Name string

	// Values is the layer's content. A nil map is treated as empty.
	Values ir.Object
}

// NewLayer builds a layer from a name and its values.
func NewLayer(name string, values ir.Object) Layer {
	return Layer{Name: name, Values: values}
}

// Preset returns the layer for a named preset.
func Preset(name string, values ir.Object) Layer {
	return Layer{Name: "preset:" + name, Values: values}
}

// Clone returns a deep copy of the layer.
func (l Layer) Clone() Layer {
	return Layer{Name: l.Name, Values: l.Values.Clone()}
}

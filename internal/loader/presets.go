package loader

import (
	"fmt"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/ir"
)

// Presets holds named override layers in declaration order.
type Presets struct {
	Names  []string
	layers map[string]ir.Object
}

// ParsePresets reads a presets document: each top-level key names a preset
// whose value is a mapping.
func ParsePresets(doc *Document) (*Presets, error) {
	p := &Presets{Names: make([]string, 0, len(doc.Keys)), layers: make(map[string]ir.Object, len(doc.Keys))}
	for _, name := range doc.Keys {
		obj, ok := doc.Values[name].(ir.Object)
		if !ok {
			return nil, &compose.ConfigError{
				Layer:   "preset:" + name,
				Message: fmt.Sprintf("preset must be a mapping, got %s", ir.Kind(doc.Values[name])),
			}
		}
		p.Names = append(p.Names, name)
		p.layers[name] = obj
	}
	return p, nil
}

// Select returns the layers for the named presets in the order given.
// An unknown name is a *compose.ConfigError.
func (p *Presets) Select(names ...string) ([]compose.Layer, error) {
	layers := make([]compose.Layer, 0, len(names))
	for _, name := range names {
		obj, ok := p.layers[name]
		if !ok {
			return nil, &compose.ConfigError{
				Layer:   "preset:" + name,
				Message: fmt.Sprintf("unknown preset (have %v)", p.Names),
			}
		}
		layers = append(layers, compose.Preset(name, obj.Clone()))
	}
	return layers, nil
}

// BaseLayer wraps a configuration document as the base layer.
func BaseLayer(doc *Document) compose.Layer {
	return compose.NewLayer(compose.LayerBase, doc.Values.Clone())
}

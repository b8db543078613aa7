package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/loader"
	"github.com/roach88/sweep/internal/objective"
	"github.com/roach88/sweep/internal/space"
)

// InputOptions names the documents a sweep is built from. It is shared by
// run and validate.
type InputOptions struct {
	Space   string
	Base    string
	Presets string
	With    []string
}

func (o *InputOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Space, "space", "", "search-space document (yaml|json|cue|hcl, required)")
	cmd.Flags().StringVar(&o.Base, "base", "", "base configuration document")
	cmd.Flags().StringVar(&o.Presets, "presets", "", "presets document")
	cmd.Flags().StringSliceVar(&o.With, "with", nil, "preset to apply, in order (repeatable)")
	_ = cmd.MarkFlagRequired("space")
}

// Inputs is everything loaded from disk for one sweep.
type Inputs struct {
	// Base is the layer stack: base document, then presets.
	Base []compose.Layer

	// Presets lists the applied preset names in merge order.
	Presets []string

	Space space.SearchSpace

	// SpaceSpec is the search-space document as {name, domain} objects in
	// declaration order, the form kept in the run store.
	SpaceSpec ir.Array

	// Files maps each role ("space", "base", "presets") to its path.
	Files map[string]string
}

// LoadInputs reads the documents named by opts.
//
// The sweep name selects a preset of the same name when the presets
// document has one and --with was not given. Without --base the polynomial
// objective's defaults stand in as the base layer.
//
// Errors are *loader.LoadError for unreadable documents,
// *space.SearchSpaceError for a malformed space and *compose.ConfigError
// for unknown or malformed presets.
func LoadInputs(name, objectiveName string, opts InputOptions) (*Inputs, error) {
	in := &Inputs{Files: map[string]string{"space": opts.Space}}

	spaceDoc, err := loader.Load(opts.Space)
	if err != nil {
		return nil, err
	}
	in.Space, err = loader.ParseSearchSpace(spaceDoc)
	if err != nil {
		return nil, err
	}
	for _, key := range spaceDoc.Keys {
		in.SpaceSpec = append(in.SpaceSpec, ir.Obj(
			ir.O("name", ir.String(key)),
			ir.O("domain", ir.Clone(spaceDoc.Values[key])),
		))
	}

	switch {
	case opts.Base != "":
		baseDoc, err := loader.Load(opts.Base)
		if err != nil {
			return nil, err
		}
		in.Base = append(in.Base, loader.BaseLayer(baseDoc))
		in.Files["base"] = opts.Base
	case objectiveName == objective.NamePolynomial:
		in.Base = append(in.Base, compose.NewLayer(compose.LayerBase, objective.PolynomialDefaults()))
	}

	if opts.Presets == "" {
		if len(opts.With) > 0 {
			return nil, NewExitError(ExitCommandError, "--with requires --presets")
		}
		return in, nil
	}

	presetsDoc, err := loader.Load(opts.Presets)
	if err != nil {
		return nil, err
	}
	in.Files["presets"] = opts.Presets
	presets, err := loader.ParsePresets(presetsDoc)
	if err != nil {
		return nil, err
	}

	names := opts.With
	if len(names) == 0 && slices.Contains(presets.Names, name) {
		names = []string{name}
	}
	layers, err := presets.Select(names...)
	if err != nil {
		return nil, err
	}
	in.Base = append(in.Base, layers...)
	in.Presets = names
	return in, nil
}

// describeInputs summarises the applied layers for verbose output.
func describeInputs(in *Inputs) string {
	names := make([]string, len(in.Base))
	for i, l := range in.Base {
		names[i] = l.Name
	}
	return fmt.Sprintf("layers %v, %d parameter(s) %v", names, len(in.Space.Params), in.Space.Names())
}

package compose

import (
	"fmt"
	"slices"

	"github.com/roach88/sweep/internal/ir"
)

// Merge folds layers left to right into a fresh object. Later layers win on
// the same key. The result is a deep copy and shares nothing with the inputs.
func Merge(layers ...Layer) (ir.Object, error) {
	out := ir.Object{}
	for _, layer := range layers {
		if layer.Name == "" {
			return nil, &ConfigError{Message: "layer has no name"}
		}
		if err := mergeInto(out, layer.Values, layer.Name, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MustMerge is like Merge but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMerge(layers ...Layer) ir.Object {
	out, err := Merge(layers...)
	if err != nil {
		panic(err)
	}
	return out
}

// mergeInto merges src into dst in place. dst is owned by Merge, so every
// value taken from src is cloned before it is stored.
func mergeInto(dst, src ir.Object, layer string, path []string) error {
	for _, key := range src.SortedKeys() {
		incoming := src[key]
		keyPath := append(slices.Clip(path), key)

		existing, present := dst[key]
		if !present {
			dst[key] = ir.Clone(incoming)
			continue
		}

		existingObj, existingIsObj := existing.(ir.Object)
		incomingObj, incomingIsObj := incoming.(ir.Object)

		switch {
		case existingIsObj && incomingIsObj:
			if err := mergeInto(existingObj, incomingObj, layer, keyPath); err != nil {
				return err
			}
		case existingIsObj != incomingIsObj:
			return &ConfigError{
				Layer: layer,
				Path:  keyPath,
				Message: fmt.Sprintf("cannot override %s with %s",
					ir.Kind(existing), ir.Kind(incoming)),
			}
		default:
			dst[key] = ir.Clone(incoming)
		}
	}
	return nil
}

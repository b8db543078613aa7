// Package compose merges configuration layers.
//
// A trial's configuration is built from an ordered list of layers: the base
// document, then any named presets, then the trial's assignment. Merge folds
// them left to right:
//
//   - when both sides of a key are objects, they merge recursively
//   - otherwise the later value replaces the earlier one wholesale
//     (arrays are replaced, never concatenated)
//   - a layer that replaces an object with a non-object, or a non-object
//     with an object, is rejected with a *ConfigError
//
// Merge never mutates its inputs and the result shares no structure with
// them, so it is safe to hand to concurrently running trials.
package compose

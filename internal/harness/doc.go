// Package harness runs sweep scenarios for conformance testing.
//
// A scenario is a YAML file naming the documents a sweep is built from
// (search space, base configuration, presets), the objective to evaluate
// and a list of assertions over the outcome. Run executes the sweep for
// real, with a deterministic clock, a fixed run id and a fresh in-memory
// store, and returns the per-trial trace plus any assertion failures.
//
// Scenario files look like this:
//
//	name: polynomial_grid
//	description: exponent grid over the polynomial objective
//	space: space.yaml
//	presets: presets.yaml
//	with: [hyperparameter_search]
//	objective: polynomial
//	concurrency: 2
//	assertions:
//	  - type: best_trial
//	    trial: 3
//	  - type: status_count
//	    status: completed
//	    count: 4
//
// Document paths are resolved relative to the scenario file.
//
// RunWithGolden compares a canonical snapshot of the outcome against
// testdata/golden/<name>.golden. The snapshot leaves out timings and
// completion order, which vary with scheduling.
package harness

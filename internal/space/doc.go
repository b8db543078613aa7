// Package space expands a declarative search space into trial assignments.
//
// A SearchSpace is an ordered list of parameters, each bound to a Domain:
//
//   - Fixed contributes one value to every trial
//   - Grid contributes each of its values in turn
//   - Sampled contributes Count draws from a seeded distribution
//
// Grid parameters combine as a Cartesian product in nested-loop order with
// the first declared parameter varying slowest. All sampled parameters of a
// space share one Count; their draws are zipped positionally into sample
// rows, and every grid point is paired with every sample row (grid point
// outer, sample row inner).
//
// Expansion is deterministic: the same space always yields the same
// assignments in the same order, and a Plan can be re-read any number of
// times.
package space

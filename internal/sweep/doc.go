// Package sweep ties the pieces of a parameter sweep together.
//
// A sweep is described by a Context: the layer stack (base configuration
// then presets), the search space, the objective, where trial records go
// and how many trials run at once. Prepare validates all of it eagerly
// (every trial configuration is merged before anything runs, so a
// ConfigError or SearchSpaceError surfaces before any worker starts) and
// returns a Run. Run.Execute dispatches the trials and aggregates their
// outcomes into a Report.
//
// There is no global registry: two sweeps in one process share nothing.
package sweep

// Package aggregate selects the best trial of a finished run and renders the
// per-trial audit.
//
// Only Completed trials compete. Ties on the metric go to the smallest trial
// id, so the choice is independent of completion order. A run with no
// Completed trial yields *NoSuccessfulTrialsError.
package aggregate

// Package trial defines a single sweep trial and runs it.
//
// A Trial moves Pending -> Running -> Completed|Failed exactly once. The
// Runner composes the trial's configuration, opens an observer handle,
// invokes the objective, classifies the result and always finalizes the
// handle. Objective failures never escape the Runner: they become Failed
// outcomes carrying a *Failure.
package trial

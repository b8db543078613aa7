// Package engine dispatches trials onto a bounded pool of workers.
//
// The Scheduler holds pending jobs in trial-id order and hands them to at
// most Concurrency workers. Each worker runs one trial at a time through a
// TrialRunner and sends its terminal outcome on the dispatch channel. The
// channel closes once every started trial has finished, which is the
// barrier the aggregator waits on.
//
// A failing trial never affects its siblings. Cancelling the dispatch
// context stops further trials from starting; trials already running get a
// grace period before their own contexts are cancelled and they are
// recorded as failed with reason "cancelled".
//
// Outcomes are stamped with a logical completion sequence from Clock. The
// only state shared between workers is the read-only base configuration held
// by the runner and the atomic running counter.
package engine

// Package store provides SQLite-backed durable storage for sweep runs.
//
// Three tables:
//   - runs: one row per sweep (name, metric, mode, base config, space)
//   - trials: one row per trial (config, status, result or failure)
//   - records: key/value entries recorded by a trial
//
// The store doubles as a trial.Sink (see Store.Sink), so every trial's
// configuration and records are written as the run progresses and can be
// audited later with ReadTrials.
//
// # Deterministic Query Results
//
// Every multi-row query has an ORDER BY: trials by trial_id, records by
// recording seq, runs by start time then id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// JSON columns hold RFC 8785 canonical JSON produced by internal/ir.
package store

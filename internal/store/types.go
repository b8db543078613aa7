package store

import (
	"time"

	"github.com/roach88/sweep/internal/ir"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"    // no trial completed
	RunCancelled = "cancelled" // interrupted before every trial finished
)

// Run is the stored header of one sweep.
type Run struct {
	ID          string
	Name        string
	Metric      string
	Mode        string // "max" or "min"
	Concurrency int
	TrialCount  int

	// BaseConfig is the base layer merged with the selected presets.
	BaseConfig ir.Object

	// Space lists {name, domain} objects in declaration order.
	Space ir.Array

	EngineVersion string
	SchemaVersion string

	Status      string
	BestTrialID *int64
	StartedAt   time.Time
	EndedAt     time.Time
}

// Record is one key/value entry a trial wrote through the sink.
type Record struct {
	TrialID int64
	Seq     int64
	Key     string
	Value   ir.Value
}

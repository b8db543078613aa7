package sweep

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// Report is the aggregated outcome of a run.
type Report struct {
	RunID         string    `json:"run_id"`
	Name          string    `json:"name,omitempty"`
	Metric        string    `json:"metric"`
	Mode          string    `json:"mode"`
	EngineVersion string    `json:"engine_version"`
	SchemaVersion string    `json:"schema_version"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`

	Summary aggregate.Summary `json:"summary"`

	// Best is nil when no trial completed.
	Best *BestTrial `json:"best,omitempty"`

	Leaderboard []Entry              `json:"leaderboard"`
	Trials      []aggregate.AuditRow `json:"trials"`
	Failures    []aggregate.AuditRow `json:"failures,omitempty"`

	// NotStarted lists trials that never ran because the run was cancelled.
	NotStarted []int64 `json:"not_started,omitempty"`

	Cancelled       bool `json:"cancelled"`
	PeakConcurrency int  `json:"peak_concurrency"`
}

// BestTrial is the winning trial with everything needed to reproduce it.
type BestTrial struct {
	TrialID    int64     `json:"trial_id"`
	Result     float64   `json:"result"`
	Assignment ir.Object `json:"assignment"`
	Config     ir.Object `json:"config"`
	ConfigHash string    `json:"config_hash"`
	Artifact   string    `json:"artifact,omitempty"`
}

// Entry is one leaderboard row.
type Entry struct {
	Rank       int       `json:"rank"`
	TrialID    int64     `json:"trial_id"`
	Result     float64   `json:"result"`
	Assignment ir.Object `json:"assignment"`
}

func (r *Run) report(cancelled bool) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := &Report{
		RunID:           r.ID,
		Name:            r.Name,
		Metric:          r.Metric,
		Mode:            r.Mode.String(),
		EngineVersion:   ir.EngineVersion,
		SchemaVersion:   ir.SchemaVersion,
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		Summary:         aggregate.Summarize(r.Trials),
		Trials:          aggregate.Audit(r.Trials),
		Cancelled:       cancelled,
		PeakConcurrency: r.scheduler.Peak(),
	}
	rep.Failures = aggregate.Failures(rep.Trials)

	for _, t := range r.Trials {
		if t.Status == trial.StatusPending {
			rep.NotStarted = append(rep.NotStarted, t.ID)
		}
	}
	slices.Sort(rep.NotStarted)

	board := aggregate.Leaderboard(r.Trials, r.Mode, r.ctx.Top)
	rep.Leaderboard = make([]Entry, len(board))
	for i, t := range board {
		rep.Leaderboard[i] = Entry{Rank: i + 1, TrialID: t.ID, Result: *t.Result, Assignment: t.Assignment}
	}

	best, err := aggregate.SelectBest(r.Trials, r.Mode)
	if err != nil {
		return rep, err
	}
	rep.Best = &BestTrial{
		TrialID:    best.ID,
		Result:     *best.Result,
		Assignment: best.Assignment,
		Config:     best.Config,
		ConfigHash: best.ConfigHash,
		Artifact:   best.Artifact,
	}
	return rep, nil
}

// BestTrialID returns the winning trial id, or nil.
func (rep *Report) BestTrialID() *int64 {
	if rep.Best == nil {
		return nil
	}
	id := rep.Best.TrialID
	return &id
}

// Object renders the report as a configuration value, the shape written to
// the run's summary artifact.
func (rep *Report) Object() (ir.Object, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	var obj ir.Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return obj, nil
}

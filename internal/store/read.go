package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sweep/internal/trial"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const runColumns = `id, name, metric, mode, concurrency, trial_count, base_config, space,
	engine_version, schema_version, status, best_trial_id, started_at, ended_at`

// ReadRun retrieves a run header by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns every run, oldest first.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(sc rowScanner) (Run, error) {
	var (
		run              Run
		baseJSON, spJSON string
		best             sql.NullInt64
		started, ended   sql.NullString
	)
	err := sc.Scan(
		&run.ID, &run.Name, &run.Metric, &run.Mode, &run.Concurrency, &run.TrialCount,
		&baseJSON, &spJSON, &run.EngineVersion, &run.SchemaVersion, &run.Status,
		&best, &started, &ended,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.BaseConfig, err = unmarshalObject(baseJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.Space, err = unmarshalArray(spJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if best.Valid {
		id := best.Int64
		run.BestTrialID = &id
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.EndedAt, err = parseTime(ended); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}

// ReadTrials returns every trial of a run ordered by trial id.
// Returns an empty slice (not nil) if the run has no trials.
func (s *Store) ReadTrials(ctx context.Context, runID string) ([]*trial.Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trial_id, assignment, config, config_hash, status, result,
		       failure_reason, failure_message, artifact, attempts, seq, started_at, ended_at
		FROM trials
		WHERE run_id = ?
		ORDER BY trial_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	trials := []*trial.Trial{}
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return trials, nil
}

func scanTrial(sc rowScanner) (*trial.Trial, error) {
	var (
		t                   trial.Trial
		assignJSON, cfgJSON string
		status              string
		result              sql.NullFloat64
		reason, detail      sql.NullString
		started, ended      sql.NullString
	)
	err := sc.Scan(
		&t.ID, &assignJSON, &cfgJSON, &t.ConfigHash, &status, &result,
		&reason, &detail, &t.Artifact, &t.Attempts, &t.Seq, &started, &ended,
	)
	if err != nil {
		return nil, fmt.Errorf("scan trial: %w", err)
	}

	if t.Assignment, err = unmarshalObject(assignJSON); err != nil {
		return nil, fmt.Errorf("trial %d: %w", t.ID, err)
	}
	if t.Config, err = unmarshalObject(cfgJSON); err != nil {
		return nil, fmt.Errorf("trial %d: %w", t.ID, err)
	}
	if t.Status, err = trial.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("trial %d: %w", t.ID, err)
	}
	if result.Valid {
		r := result.Float64
		t.Result = &r
	}
	if reason.Valid {
		t.Failure = &trial.Failure{TrialID: t.ID, Reason: trial.FailureReason(reason.String)}
		if detail.Valid {
			t.Failure.Err = errors.New(detail.String)
		}
	}
	if t.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("trial %d: %w", t.ID, err)
	}
	if t.EndedAt, err = parseTime(ended); err != nil {
		return nil, fmt.Errorf("trial %d: %w", t.ID, err)
	}
	return &t, nil
}

// ReadRecords returns a trial's recorded entries in recording order.
func (s *Store) ReadRecords(ctx context.Context, runID string, trialID int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trial_id, seq, key, value
		FROM records
		WHERE run_id = ? AND trial_id = ?
		ORDER BY seq ASC
	`, runID, trialID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec       Record
			valueJSON string
		)
		if err := rows.Scan(&rec.TrialID, &rec.Seq, &rec.Key, &valueJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Value, err = unmarshalValue(valueJSON); err != nil {
			return nil, fmt.Errorf("record %d/%d: %w", rec.TrialID, rec.Seq, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

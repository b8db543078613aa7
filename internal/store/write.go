package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// WriteRun inserts a run header.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	baseJSON, err := marshalObject(run.BaseConfig)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if run.Space == nil {
		run.Space = ir.Array{}
	}
	spaceJSON, err := marshalValue(run.Space)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.SchemaVersion == "" {
		run.SchemaVersion = ir.SchemaVersion
	}
	if run.Status == "" {
		run.Status = RunRunning
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, metric, mode, concurrency, trial_count, base_config, space,
		 engine_version, schema_version, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Name,
		run.Metric,
		run.Mode,
		run.Concurrency,
		run.TrialCount,
		baseJSON,
		spaceJSON,
		run.EngineVersion,
		run.SchemaVersion,
		run.Status,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records a run's final status and best trial.
// Returns sql.ErrNoRows (wrapped) if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, runID, status string, bestTrialID *int64, endedAt time.Time) error {
	var best sql.NullInt64
	if bestTrialID != nil {
		best = sql.NullInt64{Int64: *bestTrialID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, best_trial_id = ?, ended_at = ?
		WHERE id = ?
	`, status, best, formatTime(endedAt), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// WriteTrials upserts the final state of every trial of a run in one
// transaction. Trials the sink already inserted are updated; trials that
// never started are inserted as pending.
func (s *Store) WriteTrials(ctx context.Context, runID string, trials []*trial.Trial) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trials: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trials
		(run_id, trial_id, assignment, config, config_hash, status, result,
		 failure_reason, failure_message, artifact, attempts, seq, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, trial_id) DO UPDATE SET
			assignment      = excluded.assignment,
			status          = excluded.status,
			result          = excluded.result,
			failure_reason  = excluded.failure_reason,
			failure_message = excluded.failure_message,
			artifact        = excluded.artifact,
			attempts        = excluded.attempts,
			seq             = excluded.seq,
			started_at      = excluded.started_at,
			ended_at        = excluded.ended_at
	`)
	if err != nil {
		return fmt.Errorf("write trials: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range trials {
		assignJSON, err := marshalObject(t.Assignment)
		if err != nil {
			return fmt.Errorf("write trial %d: %w", t.ID, err)
		}
		cfgJSON, err := marshalObject(t.Config)
		if err != nil {
			return fmt.Errorf("write trial %d: %w", t.ID, err)
		}

		var (
			result         sql.NullFloat64
			reason, detail sql.NullString
		)
		if t.Result != nil {
			result = sql.NullFloat64{Float64: *t.Result, Valid: true}
		}
		if t.Failure != nil {
			reason = sql.NullString{String: string(t.Failure.Reason), Valid: true}
			if t.Failure.Err != nil {
				detail = sql.NullString{String: t.Failure.Err.Error(), Valid: true}
			}
		}

		_, err = stmt.ExecContext(ctx,
			runID,
			t.ID,
			assignJSON,
			cfgJSON,
			t.ConfigHash,
			t.Status.String(),
			result,
			reason,
			detail,
			t.Artifact,
			t.Attempts,
			t.Seq,
			formatTime(t.StartedAt),
			formatTime(t.EndedAt),
		)
		if err != nil {
			return fmt.Errorf("write trial %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trials: commit: %w", err)
	}
	return nil
}

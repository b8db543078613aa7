package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// ErrForeignHandle is returned when a sink is given a handle it did not open.
var ErrForeignHandle = errors.New("store: handle was not opened by this sink")

// Sink returns a trial.Sink that writes into runID. The run row must
// already exist (see WriteRun).
func (s *Store) Sink(runID string) trial.Sink {
	return &sink{store: s, runID: runID}
}

type sink struct {
	store *Store
	runID string
}

type handle struct {
	runID string
	id    int64
	seq   atomic.Int64
}

func (h *handle) TrialID() int64   { return h.id }
func (h *handle) Location() string { return fmt.Sprintf("sqlite:%s/%d", h.runID, h.id) }

// Open inserts the trial row in the running state. Opening the same trial
// twice fails on the primary key.
func (k *sink) Open(ctx context.Context, trialID int64, cfg ir.Object) (trial.Handle, error) {
	cfgJSON, err := marshalObject(cfg)
	if err != nil {
		return nil, fmt.Errorf("open trial %d: %w", trialID, err)
	}
	hash, err := ir.ConfigHash(cfg)
	if err != nil {
		return nil, fmt.Errorf("open trial %d: %w", trialID, err)
	}

	_, err = k.store.db.ExecContext(ctx, `
		INSERT INTO trials (run_id, trial_id, config, config_hash, status)
		VALUES (?, ?, ?, ?, ?)
	`, k.runID, trialID, cfgJSON, hash, trial.StatusRunning.String())
	if err != nil {
		return nil, fmt.Errorf("open trial %d: %w", trialID, err)
	}
	return &handle{runID: k.runID, id: trialID}, nil
}

// Record appends one entry. Entries keep their recording order.
func (k *sink) Record(ctx context.Context, h trial.Handle, key string, v ir.Value) error {
	sh, err := k.unwrap(h)
	if err != nil {
		return err
	}
	valueJSON, err := marshalValue(v)
	if err != nil {
		return fmt.Errorf("record %q for trial %d: %w", key, sh.id, err)
	}

	_, err = k.store.db.ExecContext(ctx, `
		INSERT INTO records (run_id, trial_id, seq, key, value)
		VALUES (?, ?, ?, ?, ?)
	`, sh.runID, sh.id, sh.seq.Add(1), key, valueJSON)
	if err != nil {
		return fmt.Errorf("record %q for trial %d: %w", key, sh.id, err)
	}
	return nil
}

// Finalize stores the trial's terminal status.
func (k *sink) Finalize(ctx context.Context, h trial.Handle, status trial.Status) error {
	sh, err := k.unwrap(h)
	if err != nil {
		return err
	}
	_, err = k.store.db.ExecContext(ctx, `
		UPDATE trials SET status = ? WHERE run_id = ? AND trial_id = ?
	`, status.String(), sh.runID, sh.id)
	if err != nil {
		return fmt.Errorf("finalize trial %d: %w", sh.id, err)
	}
	return nil
}

func (k *sink) unwrap(h trial.Handle) (*handle, error) {
	sh, ok := h.(*handle)
	if !ok || sh.runID != k.runID {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	return sh, nil
}

package observer

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// Multi returns a sink that forwards every call to each of sinks in order.
// The combined handle reports the first sink's location.
func Multi(sinks ...trial.Sink) trial.Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return multiSink(sinks)
}

type multiSink []trial.Sink

type multiHandle struct {
	id      int64
	handles []trial.Handle
}

func (h *multiHandle) TrialID() int64 { return h.id }

func (h *multiHandle) Location() string {
	if len(h.handles) == 0 {
		return ""
	}
	return h.handles[0].Location()
}

// Open opens every sink. If one fails, handles already opened are
// finalized as failed so no sink is left with a dangling trial.
func (m multiSink) Open(ctx context.Context, trialID int64, cfg ir.Object) (trial.Handle, error) {
	mh := &multiHandle{id: trialID, handles: make([]trial.Handle, 0, len(m))}
	for i, s := range m {
		h, err := s.Open(ctx, trialID, cfg)
		if err != nil {
			errs := []error{fmt.Errorf("sink %d: %w", i, err)}
			for j, opened := range mh.handles {
				if ferr := m[j].Finalize(ctx, opened, trial.StatusFailed); ferr != nil {
					errs = append(errs, fmt.Errorf("sink %d: %w", j, ferr))
				}
			}
			return nil, errors.Join(errs...)
		}
		mh.handles = append(mh.handles, h)
	}
	return mh, nil
}

func (m multiSink) Record(ctx context.Context, h trial.Handle, key string, v ir.Value) error {
	mh, err := m.unwrap(h)
	if err != nil {
		return err
	}
	var errs []error
	for i, s := range m {
		if err := s.Record(ctx, mh.handles[i], key, v); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Finalize(ctx context.Context, h trial.Handle, status trial.Status) error {
	mh, err := m.unwrap(h)
	if err != nil {
		return err
	}
	var errs []error
	for i, s := range m {
		if err := s.Finalize(ctx, mh.handles[i], status); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) unwrap(h trial.Handle) (*multiHandle, error) {
	mh, ok := h.(*multiHandle)
	if !ok || len(mh.handles) != len(m) {
		return nil, fmt.Errorf("%w: foreign handle %T", ErrNotOpen, h)
	}
	return mh, nil
}

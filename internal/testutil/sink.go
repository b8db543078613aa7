package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// RecordingSink is an in-memory trial.Sink that remembers every call.
type RecordingSink struct {
	mu        sync.Mutex
	configs   map[int64]ir.Object
	records   map[int64]ir.Object
	finalized map[int64][]trial.Status
	opens     map[int64]int
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{
		configs:   map[int64]ir.Object{},
		records:   map[int64]ir.Object{},
		finalized: map[int64][]trial.Status{},
		opens:     map[int64]int{},
	}
}

type memHandle int64

func (h memHandle) TrialID() int64   { return int64(h) }
func (h memHandle) Location() string { return fmt.Sprintf("mem://trial/%d", int64(h)) }

// Open implements trial.Sink.
func (s *RecordingSink) Open(_ context.Context, id int64, cfg ir.Object) (trial.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[id] = cfg.Clone()
	s.records[id] = ir.Object{}
	s.opens[id]++
	return memHandle(id), nil
}

// Record implements trial.Sink.
func (s *RecordingSink) Record(_ context.Context, h trial.Handle, key string, v ir.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[h.TrialID()][key] = ir.Clone(v)
	return nil
}

// Finalize implements trial.Sink.
func (s *RecordingSink) Finalize(_ context.Context, h trial.Handle, status trial.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized[h.TrialID()] = append(s.finalized[h.TrialID()], status)
	return nil
}

// Config returns the configuration a trial was opened with.
func (s *RecordingSink) Config(id int64) ir.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configs[id]
}

// Records returns a trial's recorded entries.
func (s *RecordingSink) Records(id int64) ir.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id].Clone()
}

// Finalized returns every status a trial was finalized with.
func (s *RecordingSink) Finalized(id int64) []trial.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]trial.Status(nil), s.finalized[id]...)
}

// Opens returns how many handles were opened for a trial.
func (s *RecordingSink) Opens(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[id]
}

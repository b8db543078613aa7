package observer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/trial"
)

// Artifact file names inside a trial directory.
const (
	ConfigFile  = "config.json"
	RecordsFile = "records.json"
	RunFile     = "run.json"
	SummaryFile = "sweep.json"
)

// ErrNotOpen is returned for a handle that this sink did not open or has
// already finalized.
var ErrNotOpen = errors.New("observer: handle is not open")

// FileSink writes trial artifacts to a directory tree. It is safe for
// concurrent use; each trial only ever touches its own directory.
type FileSink struct {
	root   string
	logger *slog.Logger

	mu   sync.Mutex
	open map[int64]*fileHandle
}

type fileHandle struct {
	id  int64
	dir string

	mu      sync.Mutex
	records ir.Object
}

func (h *fileHandle) TrialID() int64   { return h.id }
func (h *fileHandle) Location() string { return h.dir }

// NewFileSink returns a sink rooted at root. Nothing touches the disk
// until Create.
func NewFileSink(root string, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSink{root: root, logger: logger, open: map[int64]*fileHandle{}}
}

// Create makes root (and parents). It must succeed before the first Open.
func (s *FileSink) Create() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create observer root: %w", err)
	}
	return nil
}

// Root returns the run directory.
func (s *FileSink) Root() string {
	return s.root
}

// Open implements trial.Sink. The trial directory must not exist yet.
func (s *FileSink) Open(_ context.Context, trialID int64, cfg ir.Object) (trial.Handle, error) {
	dir := filepath.Join(s.root, strconv.FormatInt(trialID, 10))
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("open trial %d: directory %s already exists", trialID, dir)
		}
		return nil, fmt.Errorf("open trial %d: %w", trialID, err)
	}
	if err := writeCanonical(filepath.Join(dir, ConfigFile), cfg); err != nil {
		return nil, fmt.Errorf("open trial %d: %w", trialID, err)
	}

	h := &fileHandle{id: trialID, dir: dir, records: ir.Object{}}
	s.mu.Lock()
	s.open[trialID] = h
	s.mu.Unlock()

	s.logger.Debug("observer opened", "trial", trialID, "dir", dir)
	return h, nil
}

// Record implements trial.Sink. records.json is rewritten on every call so
// it is complete even if the process dies before Finalize.
func (s *FileSink) Record(_ context.Context, h trial.Handle, key string, v ir.Value) error {
	fh, err := s.handle(h)
	if err != nil {
		return err
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fh.records[key] = ir.Clone(v)
	if err := writeCanonical(filepath.Join(fh.dir, RecordsFile), fh.records); err != nil {
		return fmt.Errorf("record %q for trial %d: %w", key, fh.id, err)
	}
	return nil
}

// Finalize implements trial.Sink. A handle can be finalized once.
func (s *FileSink) Finalize(_ context.Context, h trial.Handle, status trial.Status) error {
	fh, err := s.handle(h)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.open, fh.id)
	s.mu.Unlock()

	fh.mu.Lock()
	defer fh.mu.Unlock()

	run := ir.Obj(
		ir.O("trial_id", ir.Int(fh.id)),
		ir.O("status", ir.String(status.String())),
		ir.O("records", fh.records.Clone()),
	)
	if err := writeCanonical(filepath.Join(fh.dir, RunFile), run); err != nil {
		return fmt.Errorf("finalize trial %d: %w", fh.id, err)
	}
	s.logger.Debug("observer finalized", "trial", fh.id, "status", status)
	return nil
}

// WriteSummary writes a run-level document next to the trial directories.
func (s *FileSink) WriteSummary(v ir.Object) error {
	return writeCanonical(filepath.Join(s.root, SummaryFile), v)
}

func (s *FileSink) handle(h trial.Handle) (*fileHandle, error) {
	fh, ok := h.(*fileHandle)
	if !ok {
		return nil, fmt.Errorf("%w: foreign handle %T", ErrNotOpen, h)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open[fh.id] != fh {
		return nil, fmt.Errorf("%w: trial %d", ErrNotOpen, fh.id)
	}
	return fh, nil
}

// writeCanonical replaces path atomically with the canonical JSON of v.
func writeCanonical(path string, v ir.Value) error {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadArtifact decodes one of a trial directory's JSON files.
func ReadArtifact(dir, name string) (ir.Object, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	var obj ir.Object
	if err := obj.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return obj, nil
}

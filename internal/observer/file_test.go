package observer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/testutil"
	"github.com/roach88/sweep/internal/trial"
)

func newSink(t *testing.T) *FileSink {
	t.Helper()
	s := NewFileSink(filepath.Join(t.TempDir(), "run-1"), nil)
	require.NoError(t, s.Create())
	return s
}

func TestFileSink_CreateIsExplicit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out", "run-1")
	s := NewFileSink(root, nil)
	assert.NoDirExists(t, root)

	_, err := s.Open(context.Background(), 0, ir.Object{})
	require.Error(t, err)

	require.NoError(t, s.Create())
	assert.DirExists(t, root)
	require.NoError(t, s.Create(), "Create is idempotent")

	h, err := s.Open(context.Background(), 0, ir.Object{})
	require.NoError(t, err)
	require.NoError(t, s.Finalize(context.Background(), h, trial.StatusCompleted))
}

func TestFileSink_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSink(t)

	cfg := ir.Obj(ir.O("lr", ir.Float(0.5)), ir.O("name", ir.String("a<b")))
	h, err := s.Open(ctx, 3, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(3), h.TrialID())
	assert.Equal(t, filepath.Join(s.Root(), "3"), h.Location())

	data, err := os.ReadFile(filepath.Join(h.Location(), ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, "{\"lr\":0.5,\"name\":\"a<b\"}\n", string(data))

	require.NoError(t, s.Record(ctx, h, trial.RecordResult, ir.Float(1.25)))
	require.NoError(t, s.Record(ctx, h, trial.RecordAttempts, ir.Int(1)))

	records, err := ReadArtifact(h.Location(), RecordsFile)
	require.NoError(t, err)
	assert.Equal(t, ir.Obj(ir.O("result", ir.Float(1.25)), ir.O("attempts", ir.Int(1))), records)

	require.NoError(t, s.Finalize(ctx, h, trial.StatusCompleted))

	run, err := ReadArtifact(h.Location(), RunFile)
	require.NoError(t, err)
	assert.Equal(t, ir.String("completed"), run["status"])
	assert.Equal(t, ir.Int(3), run["trial_id"])
	assert.Equal(t, records, run["records"])
}

func TestFileSink_FinalizeOnce(t *testing.T) {
	ctx := context.Background()
	s := newSink(t)

	h, err := s.Open(ctx, 0, ir.Object{})
	require.NoError(t, err)
	require.NoError(t, s.Finalize(ctx, h, trial.StatusFailed))

	assert.ErrorIs(t, s.Finalize(ctx, h, trial.StatusFailed), ErrNotOpen)
	assert.ErrorIs(t, s.Record(ctx, h, "k", ir.Int(1)), ErrNotOpen)
}

func TestFileSink_TrialDirectoriesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newSink(t)

	_, err := s.Open(ctx, 1, ir.Object{})
	require.NoError(t, err)

	_, err = s.Open(ctx, 1, ir.Object{})
	assert.ErrorContains(t, err, "already exists")

	other := newSink(t)
	foreign, err := other.Open(ctx, 2, ir.Object{})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Record(ctx, foreign, "k", ir.Int(1)), ErrNotOpen)
}

func TestFileSink_ConcurrentTrials(t *testing.T) {
	ctx := context.Background()
	s := newSink(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			h, err := s.Open(ctx, id, ir.Obj(ir.O("id", ir.Int(id))))
			assert.NoError(t, err)
			assert.NoError(t, s.Record(ctx, h, "result", ir.Int(id*id)))
			assert.NoError(t, s.Finalize(ctx, h, trial.StatusCompleted))
		}(int64(i))
	}
	wg.Wait()

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 16)

	records, err := ReadArtifact(filepath.Join(s.Root(), "7"), RecordsFile)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(49), records["result"])
}

func TestFileSink_WithRunner(t *testing.T) {
	s := newSink(t)
	runner := &trial.Runner{
		Objective: trial.ObjectiveFunc(func(_ context.Context, cfg ir.Object) (ir.Value, error) {
			return cfg["x"], nil
		}),
		Sink: s,
		Base: []compose.Layer{compose.NewLayer(compose.LayerBase, ir.Obj(ir.O("x", ir.Int(4))))},
	}

	out := runner.Run(context.Background(), 0, compose.NewLayer(compose.LayerAssignment, ir.Object{}))
	require.Equal(t, trial.StatusCompleted, out.Status)
	assert.Equal(t, filepath.Join(s.Root(), "0"), out.Artifact)

	run, err := ReadArtifact(out.Artifact, RunFile)
	require.NoError(t, err)
	assert.Equal(t, ir.String("completed"), run["status"])
}

func TestWriteSummary(t *testing.T) {
	s := newSink(t)
	require.NoError(t, s.WriteSummary(ir.Obj(ir.O("best", ir.Int(2)))))

	got, err := ReadArtifact(s.Root(), SummaryFile)
	require.NoError(t, err)
	assert.Equal(t, ir.Obj(ir.O("best", ir.Int(2))), got)
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	files := newSink(t)
	mem := testutil.NewRecordingSink()
	sink := Multi(files, mem)

	h, err := sink.Open(ctx, 5, ir.Obj(ir.O("a", ir.Int(1))))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(files.Root(), "5"), h.Location())

	require.NoError(t, sink.Record(ctx, h, "result", ir.Float(0.5)))
	require.NoError(t, sink.Finalize(ctx, h, trial.StatusCompleted))

	assert.Equal(t, ir.Obj(ir.O("a", ir.Int(1))), mem.Config(5))
	assert.Equal(t, ir.Obj(ir.O("result", ir.Float(0.5))), mem.Records(5))
	assert.Equal(t, []trial.Status{trial.StatusCompleted}, mem.Finalized(5))

	_, err = os.Stat(filepath.Join(files.Root(), "5", RunFile))
	assert.NoError(t, err)

	assert.Same(t, mem, Multi(mem), "a single sink is returned as is")
}

type failingSink struct{ trial.NopSink }

func (failingSink) Open(context.Context, int64, ir.Object) (trial.Handle, error) {
	return nil, errors.New("disk full")
}

func TestMulti_OpenFailureFinalizesOpenedSinks(t *testing.T) {
	mem := testutil.NewRecordingSink()
	sink := Multi(mem, failingSink{})

	_, err := sink.Open(context.Background(), 1, ir.Object{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "sink 1: disk full")
	assert.Equal(t, []trial.Status{trial.StatusFailed}, mem.Finalized(1))
}

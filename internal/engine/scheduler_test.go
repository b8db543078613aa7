package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/testutil"
	"github.com/roach88/sweep/internal/trial"
)

// runnerFunc adapts a function to TrialRunner.
type runnerFunc func(ctx context.Context, id int64, assignment compose.Layer) trial.Outcome

func (f runnerFunc) Run(ctx context.Context, id int64, assignment compose.Layer) trial.Outcome {
	return f(ctx, id, assignment)
}

func jobs(n int) []Job {
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{
			TrialID:    int64(i),
			Assignment: compose.NewLayer(compose.LayerAssignment, ir.Object{"x": ir.Int(int64(i))}),
		}
	}
	return out
}

func TestNewScheduler_Errors(t *testing.T) {
	_, err := NewScheduler(nil)
	require.Error(t, err)
	assert.True(t, IsWorkerPoolError(err))

	runner := &trial.Runner{Objective: testutil.NewGate(ir.Int(1))}
	for _, n := range []int{0, -3} {
		_, err = NewScheduler(runner, WithConcurrency(n))
		var we *WorkerPoolError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, ErrCodeNoWorkers, we.Code)
	}
}

func TestDispatch_DuplicateTrialIDs(t *testing.T) {
	s, err := NewScheduler(runnerFunc(func(context.Context, int64, compose.Layer) trial.Outcome {
		t.Fatal("no trial may start")
		return trial.Outcome{}
	}))
	require.NoError(t, err)

	_, err = s.Dispatch(context.Background(), []Job{{TrialID: 1}, {TrialID: 1}})
	var we *WorkerPoolError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, ErrCodeDuplicateTrial, we.Code)
}

func TestDispatch_SingleUse(t *testing.T) {
	s, err := NewScheduler(runnerFunc(func(_ context.Context, id int64, _ compose.Layer) trial.Outcome {
		return trial.Completed(id, 1)
	}))
	require.NoError(t, err)

	_, err = s.Run(context.Background(), jobs(1))
	require.NoError(t, err)

	_, err = s.Dispatch(context.Background(), jobs(1))
	var we *WorkerPoolError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, ErrCodeAlreadyDispatched, we.Code)
}

func TestDispatch_NoJobs(t *testing.T) {
	s, err := NewScheduler(runnerFunc(func(context.Context, int64, compose.Layer) trial.Outcome {
		return trial.Outcome{}
	}))
	require.NoError(t, err)

	out, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDispatch_ConcurrencyBound(t *testing.T) {
	gate := testutil.NewGate(ir.Float(0.5))
	s, err := NewScheduler(&trial.Runner{Objective: gate}, WithConcurrency(2))
	require.NoError(t, err)

	ch, err := s.Dispatch(context.Background(), jobs(5))
	require.NoError(t, err)

	gate.WaitEntered(t, 2, 2*time.Second)
	// Give a third trial the chance to (wrongly) start.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, gate.Active())
	assert.Equal(t, 2, s.Running())

	gate.Release()
	var outcomes []trial.Outcome
	for o := range ch {
		outcomes = append(outcomes, o)
	}

	require.Len(t, outcomes, 5)
	assert.Equal(t, 2, gate.Peak())
	assert.LessOrEqual(t, s.Peak(), 2)
	assert.Equal(t, 0, s.Running())
	for _, o := range outcomes {
		assert.Equal(t, trial.StatusCompleted, o.Status)
	}
}

func TestDispatch_StartsInIDOrder(t *testing.T) {
	var mu sync.Mutex
	var started []int64

	s, err := NewScheduler(
		runnerFunc(func(_ context.Context, id int64, _ compose.Layer) trial.Outcome {
			return trial.Completed(id, float64(id))
		}),
		WithConcurrency(1),
		WithStartHook(func(id int64, _ time.Time) {
			mu.Lock()
			started = append(started, id)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	shuffled := jobs(6)
	shuffled[0], shuffled[5] = shuffled[5], shuffled[0]
	shuffled[2], shuffled[3] = shuffled[3], shuffled[2]

	outcomes, err := s.Run(context.Background(), shuffled)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, started)
	for i, o := range outcomes {
		assert.Equal(t, int64(i), o.TrialID)
		assert.Equal(t, int64(i+1), o.Seq, "single worker completes in id order")
	}
}

func TestDispatch_FailureDoesNotStopSiblings(t *testing.T) {
	r := &trial.Runner{Objective: trial.ObjectiveFunc(func(_ context.Context, cfg ir.Object) (ir.Value, error) {
		if cfg["x"] == ir.Int(2) {
			return nil, errors.New("diverged")
		}
		if cfg["x"] == ir.Int(3) {
			panic("nan loss")
		}
		return cfg["x"], nil
	})}
	s, err := NewScheduler(r, WithConcurrency(3))
	require.NoError(t, err)

	outcomes, err := s.Run(context.Background(), jobs(6))
	require.NoError(t, err)
	require.Len(t, outcomes, 6)

	for _, o := range outcomes {
		switch o.TrialID {
		case 2:
			assert.Equal(t, trial.ReasonObjectiveError, o.Failure.Reason)
		case 3:
			assert.Equal(t, trial.ReasonPanic, o.Failure.Reason)
		default:
			assert.Equal(t, trial.StatusCompleted, o.Status, "trial %d", o.TrialID)
			assert.Equal(t, float64(o.TrialID), *o.Result)
		}
	}
}

func TestDispatch_SeqIsUnique(t *testing.T) {
	clock := NewClock()
	for i := 0; i < 10; i++ {
		clock.Next()
	}
	s, err := NewScheduler(runnerFunc(func(_ context.Context, id int64, _ compose.Layer) trial.Outcome {
		return trial.Completed(id, 0)
	}), WithConcurrency(4), WithClock(clock))
	require.NoError(t, err)

	outcomes, err := s.Run(context.Background(), jobs(20))
	require.NoError(t, err)

	seen := map[int64]bool{}
	for _, o := range outcomes {
		assert.Greater(t, o.Seq, int64(10))
		assert.False(t, seen[o.Seq])
		seen[o.Seq] = true
	}
}

func TestDispatch_CancelStopsPendingAndTerminatesAfterGrace(t *testing.T) {
	gate := testutil.NewGate(ir.Int(1))
	sink := testutil.NewRecordingSink()
	s, err := NewScheduler(&trial.Runner{Objective: gate, Sink: sink}, WithConcurrency(2), WithGrace(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Dispatch(ctx, jobs(5))
	require.NoError(t, err)

	gate.WaitEntered(t, 2, 2*time.Second)
	cancel()

	var outcomes []trial.Outcome
	for o := range ch {
		outcomes = append(outcomes, o)
	}

	require.Len(t, outcomes, 2, "only in-flight trials produce outcomes")
	for _, o := range outcomes {
		assert.Equal(t, trial.StatusFailed, o.Status)
		assert.Equal(t, trial.ReasonCancelled, o.Failure.Reason)
		assert.Equal(t, []trial.Status{trial.StatusFailed}, sink.Finalized(o.TrialID))
	}
	assert.Equal(t, []int64{2, 3, 4}, s.NotStarted())
	assert.Equal(t, 2, gate.Calls())
}

func TestDispatch_CancelWithNegativeGraceRunsToCompletion(t *testing.T) {
	gate := testutil.NewGate(ir.Int(1))
	s, err := NewScheduler(&trial.Runner{Objective: gate}, WithConcurrency(1), WithGrace(-1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Dispatch(ctx, jobs(3))
	require.NoError(t, err)

	gate.WaitEntered(t, 1, 2*time.Second)
	cancel()
	time.Sleep(30 * time.Millisecond)
	gate.Release()

	var outcomes []trial.Outcome
	for o := range ch {
		outcomes = append(outcomes, o)
	}

	require.Len(t, outcomes, 1)
	assert.Equal(t, trial.StatusCompleted, outcomes[0].Status)
	assert.Equal(t, []int64{1, 2}, s.NotStarted())
}

func TestWorker_JobReceivedAfterCancelIsNotStarted(t *testing.T) {
	s, err := NewScheduler(runnerFunc(func(context.Context, int64, compose.Layer) trial.Outcome {
		t.Fatal("no trial may start after cancellation")
		return trial.Outcome{}
	}))
	require.NoError(t, err)

	dispatchCtx, cancel := context.WithCancel(context.Background())
	cancel()

	work := make(chan Job, 2)
	work <- Job{TrialID: 3}
	work <- Job{TrialID: 1}
	close(work)
	out := make(chan trial.Outcome, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	s.worker(dispatchCtx, context.Background(), 0, work, out, &wg)
	wg.Wait()

	assert.Empty(t, out)
	assert.Equal(t, []int64{3, 1}, s.NotStarted())
	assert.Zero(t, s.Running())
	assert.Zero(t, s.Peak())
}

func TestWorkerPoolError_Message(t *testing.T) {
	err := newPoolError(ErrCodeNoWorkers, "concurrency must be at least 1, got %d", 0)
	assert.Equal(t, "worker pool NO_WORKERS: concurrency must be at least 1, got 0", err.Error())
	assert.True(t, IsWorkerPoolError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsWorkerPoolError(errors.New("other")))
}

func TestPendingQueue(t *testing.T) {
	q := newPendingQueue([]Job{{TrialID: 3}, {TrialID: 1}, {TrialID: 2}})
	assert.Equal(t, 3, q.Len())

	j, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(1), j.TrialID)

	j, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(1), j.TrialID)

	assert.Equal(t, []int64{2, 3}, q.Drain())
	_, ok = q.Pop()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
}

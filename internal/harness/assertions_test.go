package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/store"
	"github.com/roach88/sweep/internal/sweep"
	"github.com/roach88/sweep/internal/trial"
)

func ptr[T any](v T) *T { return &v }

// sampleResult has two completed trials and one failure; trial 1 wins.
func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{TrialID: 0, Status: "completed", Result: ptr(13.0), Assignment: ir.Obj(ir.O("exponent", ir.Int(1)))},
		{TrialID: 1, Status: "completed", Result: ptr(33.0), Assignment: ir.Obj(ir.O("exponent", ir.Int(2)))},
		{TrialID: 2, Status: "failed", Reason: "objective_error: diverged", Assignment: ir.Obj(ir.O("exponent", ir.Int(4)))},
	}
	r.Report = &sweep.Report{Best: &sweep.BestTrial{TrialID: 1, Result: 33}}
	r.Stored = store.Run{Status: store.RunCompleted}
	r.StoredTrials = []*trial.Trial{
		{ID: 0, Status: trial.StatusCompleted},
		{ID: 1, Status: trial.StatusCompleted},
		{ID: 2, Status: trial.StatusFailed},
	}
	return r
}

func TestAssertBestTrial(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertBestTrial(r, Assertion{Type: AssertBestTrial, Trial: ptr(int64(1))}))
	assert.NoError(t, assertBestTrial(r, Assertion{Type: AssertBestTrial, Trial: ptr(int64(1)), Result: ptr(33.0)}))

	err := assertBestTrial(r, Assertion{Type: AssertBestTrial, Trial: ptr(int64(0))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: trial 0")
	assert.Contains(t, err.Error(), "Actual: trial 1 (33)")

	err = assertBestTrial(r, Assertion{Type: AssertBestTrial, Trial: ptr(int64(1)), Result: ptr(34.0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: trial 1 (34)")
}

func TestAssertBestTrial_NoWinner(t *testing.T) {
	r := sampleResult()
	r.Report.Best = nil

	err := assertBestTrial(r, Assertion{Type: AssertBestTrial, Trial: ptr(int64(1))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: none")
}

func TestAssertTrialStatus(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTrialStatus(r, Assertion{Trial: ptr(int64(2)), Status: "failed"}))

	err := assertTrialStatus(r, Assertion{Trial: ptr(int64(2)), Status: "completed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: failed")

	err = assertTrialStatus(r, Assertion{Trial: ptr(int64(9)), Status: "completed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such trial")
}

func TestAssertStatusCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertStatusCount(r, Assertion{Status: "completed", Count: 2}))
	assert.NoError(t, assertStatusCount(r, Assertion{Status: "pending", Count: 0}))

	err := assertStatusCount(r, Assertion{Status: "failed", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: 1 failed trial(s)")
}

func TestAssertFailureReason(t *testing.T) {
	r := sampleResult()

	tests := []struct {
		name    string
		trial   int64
		reason  string
		wantErr bool
	}{
		{"bare category", 2, "objective_error", false},
		{"full message", 2, "objective_error: diverged", false},
		{"wrong category", 2, "panic", true},
		{"category prefix only", 2, "objective", true},
		{"completed trial", 0, "objective_error", true},
		{"unknown trial", 7, "objective_error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFailureReason(r, Assertion{Trial: ptr(tt.trial), Reason: tt.reason})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertFinalState(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertFinalState(r, Assertion{Status: "completed"}))
	assert.NoError(t, assertFinalState(r, Assertion{Status: "completed", Trial: ptr(int64(2)), TrialStatus: "failed"}))

	err := assertFinalState(r, Assertion{Status: "failed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: stored run completed")

	err = assertFinalState(r, Assertion{Status: "completed", Trial: ptr(int64(2)), TrialStatus: "completed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: stored trial 2 failed")

	err = assertFinalState(r, Assertion{Status: "completed", Trial: ptr(int64(5)), TrialStatus: "completed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such stored trial")
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertBestTrial, Trial: ptr(int64(1))},
		{Type: AssertStatusCount, Status: "completed", Count: 2},
		{Type: AssertFailureReason, Trial: ptr(int64(2)), Reason: "objective_error"},
		{Type: AssertFinalState, Status: "completed"},
	})
	assert.Empty(t, errs)

	errs = EvaluateAssertions(r, []Assertion{
		{Type: AssertStatusCount, Status: "completed", Count: 2},
		{Type: AssertTrialStatus, Trial: ptr(int64(0)), Status: "failed"},
		{Type: "trace_order"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 1")
	assert.Contains(t, errs[1], "unknown assertion type: trace_order")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertStatusCount,
		Expected: "4 completed trial(s)",
		Actual:   "3 completed trial(s)",
		Trace:    sampleResult().Trace,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: status_count")
	assert.Contains(t, msg, "Expected: 4 completed trial(s)")
	assert.Contains(t, msg, "Actual: 3 completed trial(s)")
	assert.Contains(t, msg, "[1] completed 33")
	assert.Contains(t, msg, "[2] failed objective_error: diverged")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

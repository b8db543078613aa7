package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sweep/internal/ir"
)

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err, "Open()")
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun builds a run header with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:          id,
		Name:        "polynomial",
		Metric:      "accuracy",
		Mode:        "max",
		Concurrency: 2,
		TrialCount:  3,
		BaseConfig:  ir.Obj(ir.O("offset", ir.Int(10))),
		Space: ir.Array{
			ir.Obj(ir.O("name", ir.String("exponent")), ir.O("domain", ir.String("grid(3 values)"))),
		},
		StartedAt: testStart,
	}
}

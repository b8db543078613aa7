package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"runs", "trials", "records"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1")) // NORMAL
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "2"))
}

func TestOpen_MigrationIndexes(t *testing.T) {
	s := createTestStore(t)

	for _, index := range []string{"idx_trials_run_status", "idx_runs_started"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", index,
		).Scan(&name)
		assert.NoError(t, err, "index %q", index)
	}
}

func TestOpen_MigratesOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_runs_started")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path, ReadOnly())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaTooOld)

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.verifyPragma("user_version", "2"))

	var name string
	assert.NoError(t, s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_runs_started'",
	).Scan(&name))
}

func TestOpen_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteRun(context.Background(), createTestRun("run-1")))
	require.NoError(t, w.Close())

	r, err := Open(path, ReadOnly())
	require.NoError(t, err)
	defer r.Close()

	run, err := r.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "polynomial", run.Name)

	err = r.WriteRun(context.Background(), createTestRun("run-2"))
	assert.Error(t, err, "writes must fail on a read-only store")
}

func TestOpen_ReadOnlyMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := Open(path, ReadOnly())
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "read-only open must not create the file")
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing-dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}

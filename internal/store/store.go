package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations upgrade an existing database one user_version at a time;
// migrations[i] takes a database from version i to i+1.
var migrations = []string{
	// v1: failure listings filter trials by status.
	`CREATE INDEX IF NOT EXISTS idx_trials_run_status ON trials(run_id, status)`,
	// v2: ListRuns orders by start time.
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at, id)`,
}

// currentSchemaVersion is the user_version of a fully migrated database.
var currentSchemaVersion = len(migrations)

// ErrSchemaTooOld is returned when a read-only store finds a database that
// has not been migrated to the current schema.
var ErrSchemaTooOld = errors.New("database schema is older than this build")

// Store provides durable storage for sweep runs.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Option configures Open.
type Option func(*options)

type options struct {
	readOnly bool
}

// ReadOnly opens an existing database without creating or migrating it.
// Writes through the returned store fail.
func ReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, unless ReadOnly
// is given, in which case the file must already exist at the current
// schema version.
//
// Opening read-write is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dsn := path
	if o.readOnly {
		dsn = "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. Trials record concurrently,
	// so a single connection serialises them instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, o.readOnly); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if o.readOnly {
		err = checkSchema(db)
	} else {
		err = applySchema(db)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration. A read-only connection
// keeps the journal settings the writer chose.
func applyPragmas(db *sql.DB, readOnly bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !readOnly {
		pragmas = append([]string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// checkSchema verifies a database opened read-only is fully migrated.
func checkSchema(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}
	if version < currentSchemaVersion {
		return fmt.Errorf("%w: v%d, want v%d", ErrSchemaTooOld, version, currentSchemaVersion)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	for v := version; v < currentSchemaVersion; v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

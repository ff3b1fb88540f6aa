// Package journal persists check events for later reporting.
//
// The journal is a pure observability sink: the enforcement engine's
// correctness never depends on it, and a write failure is logged and
// dropped rather than failing the checked invocation. Uses SQLite with
// WAL mode for concurrent read access while a run is writing.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on (unit, outcome)
const currentSchemaVersion = 1

// Journal provides durable storage for check events.
type Journal struct {
	db    *sql.DB
	clock *Clock
	runID string
}

// Open creates or opens a journal database at the given path.
// Use ":memory:" for an isolated in-process journal (tests, harness).
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path, runID string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	j := &Journal{db: db, runID: runID}

	// Resume the seq clock past anything already journaled, so events
	// across runs against the same file stay totally ordered.
	last, err := j.lastSeq(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read last seq: %w", err)
	}
	j.clock = NewClockAt(last)

	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RunID returns the identifier stamped on every event this journal writes.
func (j *Journal) RunID() string { return j.runID }

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Journal methods when available.
func (j *Journal) DB() *sql.DB { return j.db }

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the (unit, outcome) index for databases created
// before the schema carried it.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_check_events_unit_outcome
		ON check_events(unit, outcome)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// lastSeq returns the highest seq in the journal, 0 when empty.
func (j *Journal) lastSeq(ctx context.Context) (int64, error) {
	var last sql.NullInt64
	err := j.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM check_events").Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64, nil
}

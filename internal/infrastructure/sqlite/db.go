// Package sqlite persists substitution run history.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// schema is applied at open. Statements are idempotent so reopening an
// existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scope_id TEXT NOT NULL,
	scenario TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	root TEXT NOT NULL,
	cached INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_ms REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario);
`

// DB wraps the history database connection and its repositories.
type DB struct {
	db   *sql.DB
	runs *RunRepository
}

// Open opens (creating if necessary) the history database at path and
// applies the schema. Parent directories are created automatically.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}

	return &DB{
		db:   db,
		runs: newRunRepository(db),
	}, nil
}

// OpenInMemory opens a fresh in-memory history database. Used by tests.
func OpenInMemory() (*DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	return &DB{
		db:   db,
		runs: newRunRepository(db),
	}, nil
}

// Runs returns the run history repository.
func (d *DB) Runs() *RunRepository {
	return d.runs
}

// Close releases the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

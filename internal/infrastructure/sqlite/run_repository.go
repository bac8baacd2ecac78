package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// Run is one recorded substitution.
type Run struct {
	ID         int64     `json:"id"`
	ScopeID    string    `json:"scope_id"`
	Scenario   string    `json:"scenario,omitempty"`
	Name       string    `json:"name"`
	Root       string    `json:"root"`
	Cached     bool      `json:"cached"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMs float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Run outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// RunFilter narrows List results.
type RunFilter struct {
	// Name filters by substituted name. Empty matches all.
	Name string

	// Scenario filters by scenario name. Empty matches all.
	Scenario string

	// Limit caps the number of rows returned. 0 means no limit.
	Limit int
}

// runColumns is the list of columns to select for run queries.
const runColumns = `id, scope_id, scenario, name, root, cached, outcome, error, duration_ms, created_at`

// RunRepository stores and queries substitution runs.
type RunRepository struct {
	db *sql.DB
}

// newRunRepository creates a new RunRepository instance.
func newRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// scanRun scans a row into a Run.
func scanRun(scanner interface{ Scan(...any) error }) (*Run, error) {
	var run Run
	err := scanner.Scan(
		&run.ID, &run.ScopeID, &run.Scenario, &run.Name, &run.Root,
		&run.Cached, &run.Outcome, &run.Error, &run.DurationMs, &run.CreatedAt,
	)
	return &run, err
}

// Record inserts a run row and sets its ID.
func (r *RunRepository) Record(run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Exec(
		`INSERT INTO runs (scope_id, scenario, name, root, cached, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ScopeID, run.Scenario, run.Name, run.Root, run.Cached,
		run.Outcome, run.Error, run.DurationMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// List retrieves runs matching the filter, newest first.
func (r *RunRepository) List(filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := []any{}

	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	if filter.Scenario != "" {
		query += ` AND scenario = ?`
		args = append(args, filter.Scenario)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// DeleteAll permanently removes every recorded run.
func (r *RunRepository) DeleteAll() error {
	if _, err := r.db.Exec(`DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	return nil
}

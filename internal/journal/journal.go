// Package journal is a durable, queryable record of completed runs,
// supplementing the file-based artifacts (config.json, triggers.json,
// report.json, timing.csv) SPEC_FULL.md §6 names as a run's primary
// output: one SQLite row per run lets `cloe dump --history` list and
// compare past runs without re-reading every output directory.
//
// Grounded on the teacher's internal/store package (SQLite WAL-mode
// durability, schema migration via go:embed) wholesale; re-themed from an
// invocation/completion event log to a one-row-per-run journal since a
// simulation run has no analogous high-frequency event stream that needs
// its own durable store (the per-step timing/trigger data already has a
// home in report.json/timing.csv).
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Journal provides durable storage for completed-run records.
type Journal struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path, applying pragmas and
// the schema migration automatically. WAL mode allows `dump --history`
// to read concurrently with an in-progress `run`.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer, matching the Step Executor's single-threaded discipline

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	var version int
	row := j.db.QueryRow("PRAGMA user_version")
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("journal: reading schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}
	if _, err := j.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("journal: applying schema: %w", err)
	}
	if _, err := j.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("journal: stamping schema version: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Run is one completed simulation run's journal entry.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string // "Success" | "Failure" | "Aborted"
	Steps      int64
	StackPaths string // comma-joined list of stackfile paths, for display
	ReportJSON string // the run's full report.json, stored verbatim
}

// RecordRun inserts one completed run. Called once, after the Simulation
// Driver reaches a terminal phase.
func (j *Journal) RecordRun(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, outcome, steps, stack_paths, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.Outcome, r.Steps, r.StackPaths, r.ReportJSON,
	)
	if err != nil {
		return fmt.Errorf("journal: recording run %q: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns at most limit journaled runs (50 when limit <= 0), most
// recent first.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, outcome, steps, stack_paths, report_json
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Outcome, &r.Steps, &r.StackPaths, &r.ReportJSON); err != nil {
			return nil, fmt.Errorf("journal: scanning run row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns the journal entry for a single run id.
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, outcome, steps, stack_paths, report_json
		FROM runs WHERE id = ?`, id)
	var r Run
	var started, finished string
	if err := row.Scan(&r.ID, &started, &finished, &r.Outcome, &r.Steps, &r.StackPaths, &r.ReportJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("journal: no such run %q", id)
		}
		return nil, fmt.Errorf("journal: reading run %q: %w", id, err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return &r, nil
}

// Package journal records foundry operations in a local SQLite database so
// history queries can answer what changed, when, and against which backend.
//
// The journal is strictly best-effort: callers treat a nil *Journal as
// "disabled", recording failures are logged by the caller and never fatal.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DefaultLimit bounds Recent when the caller passes no limit.
const DefaultLimit = 20

// ErrDisabled reports a query against a nil (disabled) journal.
var ErrDisabled = errors.New("journal: disabled")

// Entry is one journaled operation.
type Entry struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Op         string `json:"op"`
	Project    string `json:"project,omitempty"`
	SpecID     string `json:"spec_id,omitempty"`
	Backend    string `json:"backend"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
}

// Journal is an append-mostly operation log backed by SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens the journal database at path, creating the file and schema as
// needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS operations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ts          TEXT    NOT NULL,
			op          TEXT    NOT NULL,
			project     TEXT,
			spec_id     TEXT,
			backend     TEXT    NOT NULL,
			outcome     TEXT    NOT NULL,
			duration_ms INTEGER NOT NULL,
			detail      TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_ops_project ON operations(project);
		CREATE INDEX IF NOT EXISTS idx_ops_ts      ON operations(ts DESC);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one entry. TS defaults to the current UTC time. Recording
// into a nil journal is a no-op.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if j == nil {
		return nil
	}
	if e.TS == "" {
		e.TS = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO operations (ts, op, project, spec_id, backend, outcome, duration_ms, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TS, e.Op, nullable(e.Project), nullable(e.SpecID), e.Backend, e.Outcome, e.DurationMS, nullable(e.Detail),
	)
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", e.Op, err)
	}
	return nil
}

// Recent returns the newest entries, newest first, optionally filtered by
// project. limit <= 0 falls back to DefaultLimit. A nil journal reports
// ErrDisabled.
func (j *Journal) Recent(ctx context.Context, project string, limit int) ([]Entry, error) {
	if j == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `
		SELECT id, ts, op, COALESCE(project, ''), COALESCE(spec_id, ''),
		       backend, outcome, duration_ms, COALESCE(detail, '')
		FROM operations`
	args := []any{}
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TS, &e.Op, &e.Project, &e.SpecID,
			&e.Backend, &e.Outcome, &e.DurationMS, &e.Detail); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return entries, nil
}

// nullable maps empty strings to NULL so optional columns stay queryable
// with IS NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

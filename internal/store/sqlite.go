// Package store provides a SQLite-backed archive of finished valuation runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ratewalk/valuation-core/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    created_at_unix_ms INTEGER NOT NULL,
    started_at_unix_ms INTEGER NOT NULL DEFAULT 0,
    ended_at_unix_ms INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    input TEXT NOT NULL,
    result TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at_unix_ms);
`

// Store persists finished runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run archive at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ArchiveRun upserts one run with its input and (optional) result.
func (s *Store) ArchiveRun(ctx context.Context, run *models.Run, input *models.RunInput, result *models.RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run == nil || run.ID == "" {
		return fmt.Errorf("run with id is required")
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	var resultJSON []byte
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (id, status, created_at_unix_ms, started_at_unix_ms, ended_at_unix_ms, error, input, result)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    started_at_unix_ms = excluded.started_at_unix_ms,
    ended_at_unix_ms = excluded.ended_at_unix_ms,
    error = excluded.error,
    result = excluded.result`,
		run.ID, string(run.Status), run.CreatedAtUnixMs, run.StartedAtUnixMs, run.EndedAtUnixMs,
		run.Error, string(inputJSON), nullableString(resultJSON))
	if err != nil {
		return fmt.Errorf("archive run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads one archived run. The result is nil for runs archived
// without one (failed or cancelled).
func (s *Store) GetRun(ctx context.Context, id string) (*models.Run, *models.RunInput, *models.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, status, created_at_unix_ms, started_at_unix_ms, ended_at_unix_ms, error, input, result
FROM runs WHERE id = ?`, id)

	var run models.Run
	var status, inputJSON string
	var resultJSON sql.NullString
	err := row.Scan(&run.ID, &status, &run.CreatedAtUnixMs, &run.StartedAtUnixMs,
		&run.EndedAtUnixMs, &run.Error, &inputJSON, &resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil, nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load run %s: %w", id, err)
	}
	run.Status = models.RunStatus(status)

	var input models.RunInput
	if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
		return nil, nil, nil, fmt.Errorf("decode input for run %s: %w", id, err)
	}

	var result *models.RunResult
	if resultJSON.Valid && resultJSON.String != "" {
		result = &models.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), result); err != nil {
			return nil, nil, nil, fmt.Errorf("decode result for run %s: %w", id, err)
		}
	}

	return &run, &input, result, nil
}

// ListRuns returns archived runs newest first, optionally filtered by
// status.
func (s *Store) ListRuns(ctx context.Context, limit, offset int, status models.RunStatus) ([]*models.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
SELECT id, status, created_at_unix_ms, started_at_unix_ms, ended_at_unix_ms, error
FROM runs`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at_unix_ms DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.Run
	for rows.Next() {
		var run models.Run
		var st string
		if err := rows.Scan(&run.ID, &st, &run.CreatedAtUnixMs, &run.StartedAtUnixMs,
			&run.EndedAtUnixMs, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = models.RunStatus(st)
		out = append(out, &run)
	}
	return out, rows.Err()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

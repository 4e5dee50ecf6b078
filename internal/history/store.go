// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records conversion runs in a SQLite ledger so repeated
// conversions of the same source can be compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// Store manages the history SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the ledger at cfg.DBPath and creates the schema
// if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			output TEXT NOT NULL,
			status TEXT NOT NULL,
			pages INTEGER,
			images INTEGER,
			chars INTEGER,
			warnings INTEGER,
			bytes INTEGER,
			validated INTEGER,
			valid INTEGER,
			error TEXT,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts rec and returns its row id.
func (s *Store) Record(ctx context.Context, rec types.RunRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (source, output, status, pages, images, chars, warnings, bytes,
			validated, valid, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Source, rec.Output, string(rec.Status), rec.Pages, rec.Images, rec.Chars, rec.Warnings, rec.Bytes,
		rec.Validated, rec.Valid, rec.Error, rec.StartedAt.UnixNano(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("recording run for %s: %w", rec.Source, err)
	}
	return res.LastInsertId()
}

// List returns the most recent runs, newest first. A non-empty source
// restricts the result to runs of that source. limit <= 0 means 20.
func (s *Store) List(ctx context.Context, source string, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, source, output, status, pages, images, chars, warnings, bytes,
			validated, valid, error, started_at, duration_ms
		FROM runs`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunRecord
	for rows.Next() {
		var (
			rec      types.RunRecord
			status   string
			errText  sql.NullString
			started  int64
			duration int64
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Output, &status, &rec.Pages, &rec.Images, &rec.Chars,
			&rec.Warnings, &rec.Bytes, &rec.Validated, &rec.Valid, &errText, &started, &duration); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Status = types.ConversionStatus(status)
		rec.Error = errText.String
		rec.Duration = time.Duration(duration) * time.Millisecond
		rec.StartedAt = time.Unix(0, started).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Latest returns the most recent run of source, or nil when there is none.
func (s *Store) Latest(ctx context.Context, source string) (*types.RunRecord, error) {
	runs, err := s.List(ctx, source, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

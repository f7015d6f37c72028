// Package store archives finished fact-check reports in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/factcheck/internal/model"
)

// ErrNotFound is returned when a run id is not archived
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	input       TEXT NOT NULL,
	verdict     TEXT NOT NULL,
	factuality  REAL NOT NULL,
	claims      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	report      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Store is the run archive
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the run listing
type RunSummary struct {
	RunID      string               `json:"run_id"`
	CreatedAt  time.Time            `json:"created_at"`
	Input      string               `json:"input"`
	Verdict    model.OverallVerdict `json:"verdict"`
	Factuality float64              `json:"factuality"`
	Claims     int                  `json:"claims"`
	DurationMs int64                `json:"duration_ms"`
}

// Open opens or creates the archive at path. ":memory:" keeps it in memory.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: an in-memory database is private to its connection
	// and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a report. Saving a run id twice replaces the first copy.
func (s *Store) Save(ctx context.Context, input string, r *model.Report) error {
	if r == nil || r.RunID == "" {
		return errors.New("store: report without run id")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSerialization, err)
	}

	created := r.Metadata.StartedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, created_at, input, verdict, factuality, claims, duration_ms, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, created.UTC().UnixMilli(), input, string(r.Summary.Verdict), r.Summary.Factuality,
		len(r.Claims), r.Metadata.DurationMs, string(data))
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

// Get returns the archived report of a run
func (s *Store) Get(ctx context.Context, runID string) (*model.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var r model.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &r, nil
}

// List returns the most recent runs first. limit <= 0 means 20.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, input, verdict, factuality, claims, duration_ms
		FROM runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var (
			rs      RunSummary
			created int64
			verdict string
		)
		if err := rows.Scan(&rs.RunID, &created, &rs.Input, &verdict, &rs.Factuality, &rs.Claims, &rs.DurationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.CreatedAt = time.UnixMilli(created).UTC()
		rs.Verdict = model.OverallVerdict(verdict)
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Preview shortens an input for listings
func Preview(input string, max int) string {
	input = strings.Join(strings.Fields(input), " ")
	runes := []rune(input)
	if len(runes) <= max {
		return input
	}
	return string(runes[:max]) + "..."
}

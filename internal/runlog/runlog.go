// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog persists a history of pipeline runs in a local SQLite
// database so operators can see what each day's run did without digging
// through artifact folders.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one recorded pipeline run.
type Run struct {
	ID               int64
	Date             string
	StartedAt        time.Time
	FinishedAt       time.Time
	RecordsChecked   int
	RecordsCorrected int
	RecordsApplied   int
	EmailSent        bool
	Errors           int
	Status           string
}

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the run-history database at dbPath, creating
// the schema if needed.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating run log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening run log database: %w", err)
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
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		records_checked INTEGER NOT NULL,
		records_corrected INTEGER NOT NULL,
		records_applied INTEGER NOT NULL,
		email_sent INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		status TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// RecordRun appends one run to the history.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (date, started_at, finished_at, records_checked,
			records_corrected, records_applied, email_sent, errors, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Date,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.RecordsChecked,
		run.RecordsCorrected,
		run.RecordsApplied,
		boolToInt(run.EmailSent),
		run.Errors,
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, started_at, finished_at, records_checked,
			records_corrected, records_applied, email_sent, errors, status
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		var emailSent int
		if err := rows.Scan(&run.ID, &run.Date, &started, &finished,
			&run.RecordsChecked, &run.RecordsCorrected, &run.RecordsApplied,
			&emailSent, &run.Errors, &run.Status); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		run.EmailSent = emailSent != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

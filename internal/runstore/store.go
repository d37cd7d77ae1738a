// SPDX-License-Identifier: MIT

// Package runstore keeps a SQLite ledger of standardisation runs.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/standardise/internal/persistence/sqlite"
)

const schemaVersion = 1

// Run statuses.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

// ErrClosed is returned when the store has been closed.
var ErrClosed = errors.New("runstore: closed")

// Run is one ledger entry.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Input      string
	Output     string
	RowsIn     int
	RowsOut    int
	Duplicates int
	Failures   []string
	Status     string
}

// Store is the ledger. Record and Recent may be called concurrently; Close
// must not race with them.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runstore: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at_ms INTEGER NOT NULL,
		finished_at_ms INTEGER NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		rows_in INTEGER NOT NULL,
		rows_out INTEGER NOT NULL,
		duplicates INTEGER NOT NULL,
		failures TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record inserts or replaces a run.
func (s *Store) Record(ctx context.Context, r Run) error {
	if s.db == nil {
		return ErrClosed
	}
	failures := r.Failures
	if failures == nil {
		failures = []string{}
	}
	encoded, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("runstore: encode failures: %w", err)
	}
	query := `
	INSERT INTO runs (id, started_at_ms, finished_at_ms, input, output, rows_in, rows_out, duplicates, failures, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		started_at_ms = excluded.started_at_ms,
		finished_at_ms = excluded.finished_at_ms,
		input = excluded.input,
		output = excluded.output,
		rows_in = excluded.rows_in,
		rows_out = excluded.rows_out,
		duplicates = excluded.duplicates,
		failures = excluded.failures,
		status = excluded.status
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Input, r.Output,
		r.RowsIn, r.RowsOut, r.Duplicates, string(encoded), r.Status,
	)
	if err != nil {
		return fmt.Errorf("runstore: record %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, started_at_ms, finished_at_ms, input, output, rows_in, rows_out, duplicates, failures, status
	FROM runs ORDER BY started_at_ms DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("runstore: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r                   Run
			startedMs, finishMs int64
			failures            string
		)
		if err := rows.Scan(&r.ID, &startedMs, &finishMs, &r.Input, &r.Output,
			&r.RowsIn, &r.RowsOut, &r.Duplicates, &failures, &r.Status); err != nil {
			return nil, fmt.Errorf("runstore: scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMs).UTC()
		r.FinishedAt = time.UnixMilli(finishMs).UTC()
		if err := json.Unmarshal([]byte(failures), &r.Failures); err != nil {
			return nil, fmt.Errorf("runstore: decode failures of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SPDX-License-Identifier: MIT

// Package sqlite opens SQLite databases with the operational pragmas every
// caller in this module relies on.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

// Config defines standard SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int // Set to 1 for writing safety, or larger for WAL reading
}

// DefaultConfig returns the recommended configuration for the run ledger and
// table outputs.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}
}

// Open initializes a SQLite connection pool with mandatory PRAGMAs.
// It enforces WAL mode and busy_timeout.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	// modernc.org/sqlite applies _pragma to every connection in the pool.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		uriPath(dbPath), cfg.BusyTimeout.Milliseconds())
	return open(dsn, cfg)
}

// OpenReadOnly opens an existing database without changing its journal mode.
// Writes are refused through query_only; mode=ro is avoided because it cannot
// attach to WAL databases whose -shm file does not exist yet.
func OpenReadOnly(dbPath string, cfg Config) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=query_only(ON)&_pragma=busy_timeout(%d)", uriPath(dbPath), cfg.BusyTimeout.Milliseconds())
	return open(dsn, cfg)
}

// uriEscaper escapes the characters that end or escape the path part of a
// SQLite URI filename. SQLite decodes %HH sequences in the path.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

func uriPath(p string) string {
	return uriEscaper.Replace(p)
}

func open(dsn string, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	return db, nil
}

// Package store persists routine state, task completion history,
// acknowledgements, and settings in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// Enable WAL mode (Write-Ahead Logging)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	query := `
	-- Per-period checklist state. period_key is a local YYYY-MM-DD:
	-- the day itself for daily tasks, the week's Monday for weekly ones.
	CREATE TABLE IF NOT EXISTS routine_state (
		period_key TEXT NOT NULL,
		task_id    TEXT NOT NULL,
		done       INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (period_key, task_id)
	);

	-- Last completion day per field-review task, for staleness ranking.
	CREATE TABLE IF NOT EXISTS completion_history (
		task_id      TEXT PRIMARY KEY,
		completed_on TEXT NOT NULL
	);

	-- Acknowledged validation findings, keyed per week by the finding's
	-- message hash.
	CREATE TABLE IF NOT EXISTS acknowledgements (
		week_key TEXT NOT NULL,
		msg_hash TEXT NOT NULL,
		message  TEXT NOT NULL,
		reason   TEXT NOT NULL,
		ts       INTEGER NOT NULL,
		PRIMARY KEY (week_key, msg_hash)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_routine_state_period ON routine_state(period_key);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

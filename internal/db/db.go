// Package db manages the local SQLite database that keeps usage snapshots
// for the history chart. It is display history only: the fetch path never
// reads from it, so cached summaries stay in-process.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	return nil
}

// createSchema creates the snapshot table and indexes if missing.
func (db *DB) createSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS usage_snapshots (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	agent              TEXT    NOT NULL,
	window_start       INTEGER NOT NULL,
	window_end         INTEGER NOT NULL,
	taken_at           INTEGER NOT NULL,
	customer           TEXT    NOT NULL,
	conversation_count INTEGER NOT NULL,
	last_active        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_snapshots_agent_taken
	ON usage_snapshots(agent, taken_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

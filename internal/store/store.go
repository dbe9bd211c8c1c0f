// Package store persists synced calendar events and totals snapshots in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// BatchSize is the number of events written per transaction.
const BatchSize = 50

// DB wraps the SQL connection with event and snapshot queries.
type DB struct {
	*sql.DB
	path string
}

// New opens (creating if needed) the database at path and applies the
// schema. ":memory:" is accepted for tests.
func New(path string) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty in-memory database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path}

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

func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (db *DB) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS calendar_events (
		event_key TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		all_day INTEGER NOT NULL DEFAULT 0,
		start_ms INTEGER,
		end_ms INTEGER,
		project TEXT NOT NULL,
		activity TEXT NOT NULL,
		hours REAL NOT NULL DEFAULT 0,
		synced_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calendar_events_start ON calendar_events(start_ms);
	CREATE INDEX IF NOT EXISTS idx_calendar_events_project ON calendar_events(project);

	CREATE TABLE IF NOT EXISTS totals_snapshots (
		id TEXT PRIMARY KEY,
		computed_at INTEGER NOT NULL,
		window_start INTEGER,
		window_end INTEGER,
		hours REAL NOT NULL,
		counted INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_totals_snapshots_computed ON totals_snapshots(computed_at);

	CREATE TABLE IF NOT EXISTS totals_rows (
		snapshot_id TEXT NOT NULL REFERENCES totals_snapshots(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		project_key TEXT NOT NULL,
		label TEXT NOT NULL,
		hours REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_totals_rows_snapshot ON totals_rows(snapshot_id);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

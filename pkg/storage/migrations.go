package storage

import (
	"database/sql"
	"fmt"
)

// MigrationVersion tracks the current database schema version.
const MigrationVersion = 1

// InitializeDatabase creates the SQLite database schema for the command journal.
// This includes migration version tracking to support future schema updates.
func InitializeDatabase(db *sql.DB) error {
	// Create migrations table to track schema version
	migrationsTable := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL UNIQUE,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check current version
	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check migration version: %w", err)
	}

	// Apply migrations
	if currentVersion < 1 {
		if err := applyMigration1(db); err != nil {
			return fmt.Errorf("failed to apply migration 1: %w", err)
		}
	}

	return nil
}

// applyMigration1 creates the journal table.
func applyMigration1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// One row per stack event, append-only
	journalTable := `
	CREATE TABLE journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		action TEXT NOT NULL,
		label TEXT NOT NULL,
		node_id TEXT,
		description TEXT,
		error TEXT,
		undo_depth INTEGER NOT NULL,
		redo_depth INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		UNIQUE (session_id, seq)
	);`

	if _, err := tx.Exec(journalTable); err != nil {
		return fmt.Errorf("failed to create journal table: %w", err)
	}

	journalIndexes := []string{
		"CREATE INDEX idx_journal_session ON journal(session_id, seq);",
		"CREATE INDEX idx_journal_recorded_at ON journal(recorded_at DESC);",
		"CREATE INDEX idx_journal_node ON journal(node_id);",
	}

	for _, idx := range journalIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create journal index: %w", err)
		}
	}

	// Record migration
	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", 1); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

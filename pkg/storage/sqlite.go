package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/flowedit/pkg/domain/types"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// SQLiteJournal records command stack events in SQLite.
// It is an audit trail of edits, not a store for the workflow itself.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (creating if needed) the journal database at dbPath.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	// Create directory if it doesn't exist
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	// Initialize database schema
	if err := InitializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Record appends entry to the journal. A zero RecordedAt is set to now.
func (j *SQLiteJournal) Record(ctx context.Context, entry JournalEntry) error {
	if entry.SessionID == "" {
		return errors.New("journal entry requires a session ID")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}

	var nodeID, description, errText sql.NullString
	if entry.NodeID != "" {
		nodeID = sql.NullString{String: entry.NodeID.String(), Valid: true}
	}
	if entry.Description != "" {
		description = sql.NullString{String: entry.Description, Valid: true}
	}
	if entry.Error != "" {
		errText = sql.NullString{String: entry.Error, Valid: true}
	}

	query := `
		INSERT INTO journal (
			session_id, seq, action, label, node_id, description, error,
			undo_depth, redo_depth, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := j.db.ExecContext(ctx, query,
		entry.SessionID.String(),
		entry.Seq,
		entry.Action,
		entry.Label,
		nodeID,
		description,
		errText,
		entry.UndoDepth,
		entry.RedoDepth,
		entry.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// List returns up to limit entries, oldest first. An empty session lists the
// most recent entries across all sessions.
func (j *SQLiteJournal) List(ctx context.Context, session types.SessionID, limit int) ([]JournalEntry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative, got %d", limit)
	}
	if limit == 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT session_id, seq, action, label, node_id, description, error,
			undo_depth, redo_depth, recorded_at
		FROM (
			SELECT * FROM journal`
	args := []interface{}{}
	if session != "" {
		query += " WHERE session_id = ?"
		args = append(args, session.String())
	}
	query += `
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]JournalEntry, 0)
	for rows.Next() {
		var (
			entry                        JournalEntry
			sessionID, recordedAt        string
			nodeID, description, errText sql.NullString
		)
		err := rows.Scan(
			&sessionID,
			&entry.Seq,
			&entry.Action,
			&entry.Label,
			&nodeID,
			&description,
			&errText,
			&entry.UndoDepth,
			&entry.RedoDepth,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if entry.RecordedAt, err = parseTimestamp(recordedAt); err != nil {
			return nil, err
		}
		entry.SessionID = types.SessionID(sessionID)
		entry.NodeID = types.NodeID(nodeID.String)
		entry.Description = description.String
		entry.Error = errText.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}

	return entries, nil
}

// Sessions summarizes every session in the journal, most recent first.
func (j *SQLiteJournal) Sessions(ctx context.Context) ([]SessionSummary, error) {
	query := `
		SELECT session_id, COUNT(*), MIN(recorded_at), MAX(recorded_at)
		FROM journal
		GROUP BY session_id
		ORDER BY MAX(id) DESC`

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]SessionSummary, 0)
	for rows.Next() {
		var (
			summary           SessionSummary
			sessionID         string
			startedAt, lastAt string
		)
		if err := rows.Scan(&sessionID, &summary.Events, &startedAt, &lastAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		summary.SessionID = types.SessionID(sessionID)
		if summary.StartedAt, err = parseTimestamp(startedAt); err != nil {
			return nil, err
		}
		if summary.LastAt, err = parseTimestamp(lastAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// timestampLayouts are the formats the driver uses when writing time.Time.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// parseTimestamp parses timestamp columns scanned as text. The driver returns
// aggregates as text, and time.Time values scan into strings as RFC 3339.
func parseTimestamp(s string) (time.Time, error) {
	// time.Time.String appends the monotonic clock reading
	s, _, _ = strings.Cut(s, " m=")
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

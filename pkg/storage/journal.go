package storage

import (
	"time"

	"github.com/dshills/flowedit/pkg/domain/types"
)

// JournalEntry is one recorded command stack event.
type JournalEntry struct {
	SessionID   types.SessionID `json:"session_id"`
	Seq         int             `json:"seq"`
	Action      string          `json:"action"`
	Label       string          `json:"label"`
	NodeID      types.NodeID    `json:"node_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Error       string          `json:"error,omitempty"`
	UndoDepth   int             `json:"undo_depth"`
	RedoDepth   int             `json:"redo_depth"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// SessionSummary describes one editing session in the journal.
type SessionSummary struct {
	SessionID types.SessionID `json:"session_id"`
	Events    int             `json:"events"`
	StartedAt time.Time       `json:"started_at"`
	LastAt    time.Time       `json:"last_at"`
}

// Package types defines core domain identifiers for flowedit.
package types

import "github.com/google/uuid"

// NodeID is a unique identifier for a service container on the canvas.
type NodeID string

// WireID is a unique identifier for a wire between two terminals.
type WireID string

// SessionID identifies one editing session (one command history).
type SessionID string

// NewNodeID generates a new unique node ID.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// String returns the string representation of a NodeID.
func (id NodeID) String() string {
	return string(id)
}

// IsZero returns true if the NodeID is the zero value.
func (id NodeID) IsZero() bool {
	return id == ""
}

// NewWireID generates a new unique wire ID.
func NewWireID() WireID {
	return WireID(uuid.NewString())
}

// String returns the string representation of a WireID.
func (id WireID) String() string {
	return string(id)
}

// NewSessionID generates a new unique session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// String returns the string representation of a SessionID.
func (id SessionID) String() string {
	return string(id)
}

package errors

import (
	"fmt"
	"time"
)

// OperationalError represents enhanced error information for debugging.
//
// It wraps errors raised while replaying the command history with the
// operation being performed (push, undo, redo), the command label and the
// node the command targets. The editor shell surfaces these to the user.
type OperationalError struct {
	Operation  string                 // What operation was being performed
	Label      string                 // Which command kind
	NodeID     string                 // Which node (if applicable)
	Timestamp  time.Time              // When error occurred
	Attributes map[string]interface{} // Additional context (optional)
	Cause      error                  // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	if err := c.undo(); err != nil {
//	    return NewOperationalError("undo", c.Label(), nodeID, err)
//	}
func NewOperationalError(operation, label, nodeID string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation: operation,
		Label:     label,
		NodeID:    nodeID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewOperationalErrorWithAttrs creates an OperationalError with additional attributes.
//
// Returns nil if cause is nil (no error to wrap).
func NewOperationalErrorWithAttrs(operation, label, nodeID string, cause error, attrs map[string]interface{}) *OperationalError {
	oe := NewOperationalError(operation, label, nodeID, cause)
	if oe == nil {
		return nil
	}
	oe.Attributes = attrs
	return oe
}

// Error implements the error interface.
//
// Format: "operation label: node={id}: {cause}"
// If node ID is empty, it's omitted from the message.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	if e.NodeID != "" {
		return fmt.Sprintf("%s %s: node=%s: %v", e.Operation, e.Label, e.NodeID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Label, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

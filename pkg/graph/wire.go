package graph

import (
	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/module"
)

// DefaultLayer is the drawing surface wires land on when none is given.
const DefaultLayer = "main"

// Wire connects two terminals on two different nodes.
type Wire struct {
	ID     types.WireID
	From   TerminalRef
	To     TerminalRef
	Layer  string
	Config module.WireConfig

	valid   bool
	route   []Position
	redraws int
}

// Valid reports whether the wire carries the confirmed-valid marker.
func (w *Wire) Valid() bool {
	return w.valid
}

// ClearValid removes the confirmed-valid marker so removing the wire does not
// fire the wire-removed hooks.
func (w *Wire) ClearValid() {
	w.valid = false
}

// Route returns the routing points computed by the last redraw.
func (w *Wire) Route() []Position {
	return append([]Position(nil), w.route...)
}

// Redraws returns how many times the wire has been redrawn.
func (w *Wire) Redraws() int {
	return w.redraws
}

// Connects reports whether the wire joins a and b, in either orientation.
func (w *Wire) Connects(a, b TerminalRef) bool {
	return (w.From == a && w.To == b) || (w.From == b && w.To == a)
}

// Touches reports whether either end of the wire is on node id.
func (w *Wire) Touches(id types.NodeID) bool {
	return w.From.NodeID == id || w.To.NodeID == id
}

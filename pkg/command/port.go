package command

import (
	"fmt"

	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/module"
)

// ConnectPort records a wire drawn between two terminals. The wire already
// exists when the command is pushed.
type ConnectPort struct {
	graph Graph
	wire  *graph.Wire
	term1 graph.TerminalRef
	term2 graph.TerminalRef
	layer string
}

// NewConnectPort creates a command for the freshly created wire w.
func NewConnectPort(g Graph, w *graph.Wire) *ConnectPort {
	c := &ConnectPort{graph: g, wire: w}
	if w != nil {
		c.term1, c.term2, c.layer = w.From, w.To, w.Layer
	}
	return c
}

func (c *ConnectPort) sealed() {}

// Label returns "connect port".
func (c *ConnectPort) Label() string { return LabelConnectPort }

// CanExecute reports whether the command holds a wire.
func (c *ConnectPort) CanExecute() bool { return c.wire != nil }

// Wire returns the command's current wire. After undo it is the removed wire,
// after redo the newly created one.
func (c *ConnectPort) Wire() *graph.Wire { return c.wire }

// Terminals returns the captured terminal pair.
func (c *ConnectPort) Terminals() (graph.TerminalRef, graph.TerminalRef) {
	return c.term1, c.term2
}

// Connects reports whether the command joins a and b, in either orientation.
func (c *ConnectPort) Connects(a, b graph.TerminalRef) bool {
	return (c.term1 == a && c.term2 == b) || (c.term1 == b && c.term2 == a)
}

func (c *ConnectPort) execute() error {
	if c.wire == nil || !c.graph.HasWire(c.wire) {
		return fmt.Errorf("%w: wire between %s and %s is not in the graph", ErrPrecondition, c.term1, c.term2)
	}
	return c.graph.RedrawWire(c.wire)
}

func (c *ConnectPort) undo() error {
	if c.wire == nil || !c.graph.HasWire(c.wire) {
		return fmt.Errorf("%w: wire between %s and %s is not in the graph", ErrPrecondition, c.term1, c.term2)
	}
	c.term1, c.term2, c.layer = c.wire.From, c.wire.To, c.wire.Layer

	// Removing a valid wire would record a disconnect.
	c.wire.ClearValid()
	return c.graph.RemoveWire(c.wire)
}

func (c *ConnectPort) redo() error {
	first, err := c.graph.Terminal(c.term1)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	w, err := createWire(c.graph, c.term1, c.term2, c.layer, first.Wire)
	if err != nil {
		return err
	}
	c.wire = w
	return nil
}

// DisconnectPort records a wire removed by the user. The wire is already gone
// when the command is pushed.
type DisconnectPort struct {
	graph  Graph
	stack  *Stack
	term1  graph.TerminalRef
	term2  graph.TerminalRef
	layer  string
	config module.WireConfig

	// wire is the wire restored by the last undo, nil after redo.
	wire *graph.Wire
}

// NewDisconnectPort creates a command for the removed wire w.
func NewDisconnectPort(g Graph, s *Stack, w *graph.Wire) *DisconnectPort {
	c := &DisconnectPort{graph: g, stack: s}
	if w != nil {
		c.term1, c.term2, c.layer, c.config = w.From, w.To, w.Layer, w.Config
	}
	return c
}

func (c *DisconnectPort) sealed() {}

// Label returns "disconnect port".
func (c *DisconnectPort) Label() string { return LabelDisconnectPort }

// CanExecute reports whether the command knows which terminals to join.
func (c *DisconnectPort) CanExecute() bool {
	return !c.term1.NodeID.IsZero() && !c.term2.NodeID.IsZero()
}

// Wire returns the restored wire while the disconnect is undone, else nil.
func (c *DisconnectPort) Wire() *graph.Wire { return c.wire }

// Terminals returns the captured terminal pair.
func (c *DisconnectPort) Terminals() (graph.TerminalRef, graph.TerminalRef) {
	return c.term1, c.term2
}

func (c *DisconnectPort) execute() error {
	// The disconnect supersedes any connect of the same pair.
	c.stack.RemoveWhere(func(other Command) bool {
		connect, ok := other.(*ConnectPort)
		return ok && connect.Connects(c.term1, c.term2)
	})
	return nil
}

func (c *DisconnectPort) undo() error {
	w, err := createWire(c.graph, c.term1, c.term2, c.layer, c.config)
	if err != nil {
		return err
	}
	c.wire = w
	return nil
}

// redo removes the wire between the captured terminals. The restored wire
// may already be gone, dropped with its node or port by a later undo.
func (c *DisconnectPort) redo() error {
	c.wire = nil
	w, ok := c.graph.WireBetween(c.term1, c.term2)
	if !ok {
		return nil
	}
	w.ClearValid()
	return c.graph.RemoveWire(w)
}

// createWire creates a valid wire and routes it. A wire that cannot be routed
// is removed again.
func createWire(g Graph, a, b graph.TerminalRef, layer string, cfg module.WireConfig) (*graph.Wire, error) {
	w, err := g.CreateWire(a, b, layer, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	if err := g.RedrawWire(w); err != nil {
		w.ClearValid()
		_ = g.RemoveWire(w)
		return nil, err
	}
	return w, nil
}

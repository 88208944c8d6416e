package graph

import (
	"errors"
	"fmt"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/module"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrWireNotFound     = errors.New("wire not found")
	ErrTerminalNotFound = errors.New("terminal not found")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrDuplicateNode    = errors.New("node already exists")
	ErrDuplicateWire    = errors.New("wire already exists")
	ErrNoDynamicPorts   = errors.New("module has no dynamic ports")
	ErrPortLimit        = errors.New("dynamic port limit reached")
	ErrPortInUse        = errors.New("port has wires attached")
)

// infoFields describe the workflow metadata form.
var infoFields = []form.Field{
	{Name: "name", Label: "Name", Type: form.FieldText, Required: true, Default: "Untitled workflow"},
	{Name: "description", Label: "Description", Type: form.FieldText},
	{Name: "author", Label: "Author", Type: form.FieldText},
	{Name: "version", Label: "Version", Type: form.FieldText, Default: "1.0.0"},
}

// Graph holds the nodes and wires of one workflow.
type Graph struct {
	nodes       map[types.NodeID]*Node
	order       []types.NodeID
	wires       []*Wire
	info        *form.Form
	wireRemoved map[int]func(*Wire)
	nextHookID  int
}

// NodeOption configures AddNode.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	id types.NodeID
}

// WithNodeID instantiates the node under an existing ID instead of a fresh
// one. Used to bring a removed node back.
func WithNodeID(id types.NodeID) NodeOption {
	return func(o *nodeOptions) {
		o.id = id
	}
}

// New creates an empty graph.
func New() *Graph {
	info, err := form.New("workflow", infoFields)
	if err != nil {
		panic("graph: invalid workflow info form: " + err.Error())
	}
	return &Graph{
		nodes:       make(map[types.NodeID]*Node),
		order:       make([]types.NodeID, 0),
		wires:       make([]*Wire, 0),
		info:        info,
		wireRemoved: make(map[int]func(*Wire)),
	}
}

// Info returns the workflow metadata form.
func (g *Graph) Info() *form.Form {
	return g.info
}

// AddNode instantiates a node from d at pos.
func (g *Graph) AddNode(d *module.Descriptor, pos Position, opts ...NodeOption) (*Node, error) {
	if d == nil {
		return nil, errors.New("cannot add node without a module descriptor")
	}
	if pos.X < 0 || pos.Y < 0 {
		return nil, fmt.Errorf("%w: coordinates cannot be negative: %s", ErrInvalidPosition, pos)
	}

	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	id := o.id
	if id.IsZero() {
		id = types.NewNodeID()
	}
	if _, exists := g.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}

	n, err := newNode(id, d, pos)
	if err != nil {
		return nil, err
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n, nil
}

// RemoveNode removes n and every wire attached to it.
// Wires dropped this way do not fire the wire-removed hooks.
func (g *Graph) RemoveNode(n *Node) error {
	if !g.HasNode(n) {
		return g.nodeNotFound(n)
	}

	delete(g.nodes, n.ID)
	for i, id := range g.order {
		if id == n.ID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	kept := make([]*Wire, 0, len(g.wires))
	for _, w := range g.wires {
		if !w.Touches(n.ID) {
			kept = append(kept, w)
		}
	}
	g.wires = kept
	return nil
}

// HasNode reports whether n is the live instance for its ID.
func (g *Graph) HasNode(n *Node) bool {
	return n != nil && g.nodes[n.ID] == n
}

// Node returns the live node for id.
func (g *Graph) Node(id types.NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodePosition returns n's current position.
func (g *Graph) NodePosition(n *Node) (Position, error) {
	if !g.HasNode(n) {
		return Position{}, g.nodeNotFound(n)
	}
	return n.position, nil
}

// SetNodePosition moves n. Wires are not re-routed until RedrawWires.
func (g *Graph) SetNodePosition(n *Node, pos Position) error {
	if !g.HasNode(n) {
		return g.nodeNotFound(n)
	}
	if pos.X < 0 || pos.Y < 0 {
		return fmt.Errorf("%w: coordinates cannot be negative: %s", ErrInvalidPosition, pos)
	}
	n.position = pos
	return nil
}

// RedrawWires re-routes every wire attached to n.
func (g *Graph) RedrawWires(n *Node) error {
	if !g.HasNode(n) {
		return g.nodeNotFound(n)
	}
	for _, w := range g.wires {
		if w.Touches(n.ID) {
			if err := g.RedrawWire(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// Terminal resolves a terminal reference against the live graph.
func (g *Graph) Terminal(ref TerminalRef) (*Terminal, error) {
	n, ok := g.nodes[ref.NodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, ref.NodeID)
	}
	t, ok := n.Terminal(ref.Port)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTerminalNotFound, ref)
	}
	return t, nil
}

// CreateWire connects a and b on layer. valid sets the confirmed-valid marker;
// the caller decides it, the graph never infers it.
func (g *Graph) CreateWire(a, b TerminalRef, layer string, cfg module.WireConfig, valid bool) (*Wire, error) {
	if _, err := g.Terminal(a); err != nil {
		return nil, err
	}
	if _, err := g.Terminal(b); err != nil {
		return nil, err
	}
	if a.NodeID == b.NodeID {
		return nil, fmt.Errorf("wire: self-loop detected (node %s to itself)", a.NodeID)
	}
	for _, existing := range g.wires {
		if existing.Connects(a, b) {
			return nil, fmt.Errorf("%w: %s to %s", ErrDuplicateWire, a, b)
		}
	}
	if layer == "" {
		layer = DefaultLayer
	}

	w := &Wire{
		ID:     types.NewWireID(),
		From:   a,
		To:     b,
		Layer:  layer,
		Config: cfg,
		valid:  valid,
	}
	g.wires = append(g.wires, w)
	return w, nil
}

// RemoveWire removes w. If w carries the valid marker the wire-removed hooks
// run after removal.
func (g *Graph) RemoveWire(w *Wire) error {
	idx := g.wireIndex(w)
	if idx < 0 {
		return g.wireNotFound(w)
	}
	g.wires = append(g.wires[:idx], g.wires[idx+1:]...)

	if w.valid {
		for id := 0; id < g.nextHookID; id++ {
			if fn, ok := g.wireRemoved[id]; ok {
				fn(w)
			}
		}
	}
	return nil
}

// HasWire reports whether w is in the graph.
func (g *Graph) HasWire(w *Wire) bool {
	return g.wireIndex(w) >= 0
}

// RedrawWire recomputes w's route from its terminals' current anchors.
func (g *Graph) RedrawWire(w *Wire) error {
	if !g.HasWire(w) {
		return g.wireNotFound(w)
	}
	from, err := g.Terminal(w.From)
	if err != nil {
		return err
	}
	to, err := g.Terminal(w.To)
	if err != nil {
		return err
	}
	w.route = routeWire(anchor(g.nodes[from.NodeID], from), anchor(g.nodes[to.NodeID], to))
	w.redraws++
	return nil
}

// Wires returns all wires in creation order.
func (g *Graph) Wires() []*Wire {
	return append([]*Wire(nil), g.wires...)
}

// WiresOf returns the wires attached to n.
func (g *Graph) WiresOf(n *Node) []*Wire {
	out := make([]*Wire, 0)
	if n == nil {
		return out
	}
	for _, w := range g.wires {
		if w.Touches(n.ID) {
			out = append(out, w)
		}
	}
	return out
}

// WireBetween returns the wire joining a and b, in either orientation.
func (g *Graph) WireBetween(a, b TerminalRef) (*Wire, bool) {
	for _, w := range g.wires {
		if w.Connects(a, b) {
			return w, true
		}
	}
	return nil, false
}

// AddDynamicPort appends one dynamic input port to n.
func (g *Graph) AddDynamicPort(n *Node) (*Terminal, error) {
	if !g.HasNode(n) {
		return nil, g.nodeNotFound(n)
	}
	dp := n.Module.DynamicPorts
	if dp == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDynamicPorts, n.Module.Name)
	}
	if n.dynamicPorts >= dp.Max {
		return nil, fmt.Errorf("%w: %s allows at most %d", ErrPortLimit, n.Module.Name, dp.Max)
	}
	return n.appendDynamicPort(), nil
}

// RemoveDynamicPort removes n's highest numbered dynamic port. The port must
// not have wires attached.
func (g *Graph) RemoveDynamicPort(n *Node) error {
	last, err := g.lastDynamicPort(n)
	if err != nil {
		return err
	}
	for _, w := range g.wires {
		if w.From == last || w.To == last {
			return fmt.Errorf("%w: %s", ErrPortInUse, last)
		}
	}
	n.removeLastDynamicPort()
	return nil
}

// DropDynamicPort removes n's highest numbered dynamic port together with
// the wires attached to it. Like RemoveNode it fires no hooks.
func (g *Graph) DropDynamicPort(n *Node) error {
	last, err := g.lastDynamicPort(n)
	if err != nil {
		return err
	}
	kept := make([]*Wire, 0, len(g.wires))
	for _, w := range g.wires {
		if w.From != last && w.To != last {
			kept = append(kept, w)
		}
	}
	g.wires = kept
	n.removeLastDynamicPort()
	return nil
}

func (g *Graph) lastDynamicPort(n *Node) (TerminalRef, error) {
	if !g.HasNode(n) {
		return TerminalRef{}, g.nodeNotFound(n)
	}
	dp := n.Module.DynamicPorts
	if dp == nil {
		return TerminalRef{}, fmt.Errorf("%w: %s", ErrNoDynamicPorts, n.Module.Name)
	}
	if n.dynamicPorts <= dp.Min {
		return TerminalRef{}, fmt.Errorf("%w: %s requires at least %d", ErrPortLimit, n.Module.Name, dp.Min)
	}
	return TerminalRef{NodeID: n.ID, Port: dp.PortName(n.dynamicPorts)}, nil
}

// OnWireRemoved registers a hook run after a valid wire is removed and
// returns a function that unregisters it.
func (g *Graph) OnWireRemoved(fn func(*Wire)) (remove func()) {
	id := g.nextHookID
	g.nextHookID++
	g.wireRemoved[id] = fn
	return func() { delete(g.wireRemoved, id) }
}

func (g *Graph) wireIndex(w *Wire) int {
	for i, existing := range g.wires {
		if existing == w {
			return i
		}
	}
	return -1
}

func (g *Graph) nodeNotFound(n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrNodeNotFound)
	}
	return fmt.Errorf("%w: %s", ErrNodeNotFound, n.ID)
}

func (g *Graph) wireNotFound(w *Wire) error {
	if w == nil {
		return fmt.Errorf("%w: nil wire", ErrWireNotFound)
	}
	return fmt.Errorf("%w: %s", ErrWireNotFound, w.ID)
}

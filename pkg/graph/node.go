package graph

import (
	"fmt"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/module"
)

// Direction tells whether a terminal receives or emits data.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// TerminalRef identifies a terminal by node and port name. It stays valid
// across re-instantiation of a node with the same ID.
type TerminalRef struct {
	NodeID types.NodeID
	Port   string
}

// String formats the ref as node.port.
func (r TerminalRef) String() string {
	return fmt.Sprintf("%s.%s", r.NodeID, r.Port)
}

// Terminal is a connection point on a node.
type Terminal struct {
	NodeID    types.NodeID
	Name      string
	Direction Direction
	Wire      module.WireConfig
	Dynamic   bool
}

// Ref returns the terminal's reference.
func (t *Terminal) Ref() TerminalRef {
	return TerminalRef{NodeID: t.NodeID, Port: t.Name}
}

// Node is a service container placed on the canvas.
type Node struct {
	ID     types.NodeID
	Module *module.Descriptor
	Form   *form.Form

	position     Position
	size         Size
	terminals    []*Terminal
	dynamicPorts int
}

// Position returns the node's current position.
func (n *Node) Position() Position {
	return n.position
}

// Size returns the node's rendered size in logical units.
func (n *Node) Size() Size {
	return n.size
}

// Terminals returns the node's terminals, inputs first.
func (n *Node) Terminals() []*Terminal {
	return append([]*Terminal(nil), n.terminals...)
}

// Terminal returns the terminal named port.
func (n *Node) Terminal(port string) (*Terminal, bool) {
	for _, t := range n.terminals {
		if t.Name == port {
			return t, true
		}
	}
	return nil, false
}

// DynamicPortCount returns how many dynamic input ports the node has.
func (n *Node) DynamicPortCount() int {
	return n.dynamicPorts
}

func (n *Node) terminalsByDirection(dir Direction) []*Terminal {
	out := make([]*Terminal, 0, len(n.terminals))
	for _, t := range n.terminals {
		if t.Direction == dir {
			out = append(out, t)
		}
	}
	return out
}

// resize computes the rendered dimensions from the module name and port count
func (n *Node) resize() {
	width := 20
	if w := len(n.Module.Name) + 4; w > width {
		width = w
	}
	ports := len(n.terminalsByDirection(Input))
	if outs := len(n.terminalsByDirection(Output)); outs > ports {
		ports = outs
	}
	if w := ports*4 + 4; w > width {
		width = w
	}
	n.size = Size{Width: width, Height: 5}
}

// newNode instantiates a node from its descriptor
func newNode(id types.NodeID, d *module.Descriptor, pos Position) (*Node, error) {
	f, err := d.NewForm()
	if err != nil {
		return nil, fmt.Errorf("failed to build form for %s: %w", d.Name, err)
	}

	n := &Node{
		ID:       id,
		Module:   d,
		Form:     f,
		position: pos,
	}
	for _, p := range d.Inputs {
		n.terminals = append(n.terminals, &Terminal{NodeID: id, Name: p.Name, Direction: Input, Wire: p.WireOrDefault()})
	}
	if dp := d.DynamicPorts; dp != nil {
		for i := 0; i < dp.Min; i++ {
			n.appendDynamicPort()
		}
	}
	for _, p := range d.Outputs {
		n.terminals = append(n.terminals, &Terminal{NodeID: id, Name: p.Name, Direction: Output, Wire: p.WireOrDefault()})
	}
	n.resize()
	return n, nil
}

// appendDynamicPort inserts the next dynamic port after the last input
func (n *Node) appendDynamicPort() *Terminal {
	dp := n.Module.DynamicPorts
	n.dynamicPorts++
	t := &Terminal{
		NodeID:    n.ID,
		Name:      dp.PortName(n.dynamicPorts),
		Direction: Input,
		Wire:      dp.WireOrDefault(),
		Dynamic:   true,
	}

	idx := 0
	for i, existing := range n.terminals {
		if existing.Direction == Input {
			idx = i + 1
		}
	}
	n.terminals = append(n.terminals, nil)
	copy(n.terminals[idx+1:], n.terminals[idx:])
	n.terminals[idx] = t
	n.resize()
	return t
}

// removeLastDynamicPort drops the highest numbered dynamic port
func (n *Node) removeLastDynamicPort() {
	name := n.Module.DynamicPorts.PortName(n.dynamicPorts)
	kept := n.terminals[:0]
	for _, t := range n.terminals {
		if t.Name != name {
			kept = append(kept, t)
		}
	}
	n.terminals = kept
	n.dynamicPorts--
	n.resize()
}

package command

import (
	"errors"
	"fmt"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/module"
)

// Labels identify the operation kind. They are not unique across instances.
const (
	LabelAddService         = "add service"
	LabelRemoveService      = "remove service"
	LabelMoveService        = "move service"
	LabelConnectPort        = "connect port"
	LabelDisconnectPort     = "disconnect port"
	LabelChangeParameter    = "change parameter"
	LabelChangeWorkflowInfo = "change workflow info"
	LabelChangeDynamicPorts = "change dynamic ports"
)

var (
	// ErrPrecondition is returned when a command's captured references are
	// stale, for example the node it targets is no longer in the graph.
	ErrPrecondition = errors.New("command precondition violated")

	// ErrCannotExecute is returned when CanExecute reports false.
	ErrCannotExecute = errors.New("command cannot execute")
)

// Command is one reversible edit. The set of implementations is closed.
type Command interface {
	Label() string
	CanExecute() bool
	sealed()
}

// Graph is the mutation API commands apply themselves to.
// *graph.Graph implements it.
type Graph interface {
	AddNode(d *module.Descriptor, pos graph.Position, opts ...graph.NodeOption) (*graph.Node, error)
	RemoveNode(n *graph.Node) error
	Node(id types.NodeID) (*graph.Node, bool)
	NodePosition(n *graph.Node) (graph.Position, error)
	SetNodePosition(n *graph.Node, pos graph.Position) error
	RedrawWires(n *graph.Node) error
	WiresOf(n *graph.Node) []*graph.Wire

	Terminal(ref graph.TerminalRef) (*graph.Terminal, error)
	CreateWire(a, b graph.TerminalRef, layer string, cfg module.WireConfig, valid bool) (*graph.Wire, error)
	RemoveWire(w *graph.Wire) error
	RedrawWire(w *graph.Wire) error
	HasWire(w *graph.Wire) bool
	WireBetween(a, b graph.TerminalRef) (*graph.Wire, bool)

	AddDynamicPort(n *graph.Node) (*graph.Terminal, error)
	DropDynamicPort(n *graph.Node) error
}

// Form is the value holder changed by ChangeWorkflowInfo.
type Form interface {
	GetValue() form.Snapshot
	SetValue(value form.Snapshot, notify bool) error
}

var _ Graph = (*graph.Graph)(nil)
var _ Form = (*form.Form)(nil)

// Target returns the node a command operates on, or the zero ID for commands
// that are not tied to a node.
func Target(cmd Command) types.NodeID {
	switch c := cmd.(type) {
	case *AddService:
		return c.id
	case *RemoveService:
		return c.id
	case *MoveService:
		return c.id
	case *ConnectPort:
		return c.term1.NodeID
	case *DisconnectPort:
		return c.term1.NodeID
	case *ChangeParameter:
		return c.id
	case *ChangeDynamicPorts:
		return c.id
	default:
		return ""
	}
}

// Describe returns a one-line human readable summary for history listings.
func Describe(cmd Command) string {
	switch c := cmd.(type) {
	case *AddService:
		return fmt.Sprintf("add %s at %s", moduleName(c.descriptor), c.position)
	case *RemoveService:
		return fmt.Sprintf("remove %s from %s", moduleName(c.descriptor), c.position)
	case *MoveService:
		return fmt.Sprintf("move %s from %s to %s", c.id, c.oldPos, c.newPos)
	case *ConnectPort:
		return fmt.Sprintf("connect %s to %s", c.term1, c.term2)
	case *DisconnectPort:
		return fmt.Sprintf("disconnect %s from %s", c.term1, c.term2)
	case *ChangeParameter:
		return fmt.Sprintf("change %v on %s", c.oldValue.Diff(c.newValue), c.id)
	case *ChangeWorkflowInfo:
		return fmt.Sprintf("change workflow %v", c.oldValue.Diff(c.newValue))
	case *ChangeDynamicPorts:
		if c.portAdded {
			return fmt.Sprintf("add port on %s", c.id)
		}
		return fmt.Sprintf("remove port on %s", c.id)
	case nil:
		return "<nil>"
	default:
		return cmd.Label()
	}
}

// referencesNode reports whether cmd targets node id, including wire commands
// with a terminal on it.
func referencesNode(cmd Command, id types.NodeID) bool {
	switch c := cmd.(type) {
	case *ConnectPort:
		return c.term1.NodeID == id || c.term2.NodeID == id
	case *DisconnectPort:
		return c.term1.NodeID == id || c.term2.NodeID == id
	default:
		return !id.IsZero() && Target(cmd) == id
	}
}

func moduleName(d *module.Descriptor) string {
	if d == nil {
		return "<unknown>"
	}
	return d.Name
}

func nodeGone(id types.NodeID) error {
	return fmt.Errorf("%w: node %s is not in the graph", ErrPrecondition, id)
}

// liveNode resolves id against g.
func liveNode(g Graph, id types.NodeID) (*graph.Node, error) {
	n, ok := g.Node(id)
	if !ok {
		return nil, nodeGone(id)
	}
	return n, nil
}

package command

import "github.com/dshills/flowedit/pkg/domain/types"

// ChangeDynamicPorts records one dynamic input port added to or removed from a
// multi-port service. The port change has already happened when the command
// is pushed.
type ChangeDynamicPorts struct {
	graph     Graph
	id        types.NodeID
	portAdded bool
}

// NewChangeDynamicPorts creates a command for node id. portAdded fixes the
// direction of the original action.
func NewChangeDynamicPorts(g Graph, id types.NodeID, portAdded bool) *ChangeDynamicPorts {
	return &ChangeDynamicPorts{graph: g, id: id, portAdded: portAdded}
}

func (c *ChangeDynamicPorts) sealed() {}

// Label returns "change dynamic ports".
func (c *ChangeDynamicPorts) Label() string { return LabelChangeDynamicPorts }

// CanExecute always returns true.
func (c *ChangeDynamicPorts) CanExecute() bool { return true }

// NodeID returns the service's ID.
func (c *ChangeDynamicPorts) NodeID() types.NodeID { return c.id }

// PortAdded reports whether the original action added a port.
func (c *ChangeDynamicPorts) PortAdded() bool { return c.portAdded }

func (c *ChangeDynamicPorts) execute() error { return nil }

func (c *ChangeDynamicPorts) undo() error { return c.apply(!c.portAdded) }

func (c *ChangeDynamicPorts) redo() error { return c.apply(c.portAdded) }

func (c *ChangeDynamicPorts) apply(add bool) error {
	n, err := liveNode(c.graph, c.id)
	if err != nil {
		return err
	}
	if add {
		_, err = c.graph.AddDynamicPort(n)
		return err
	}
	// A wire restored by an undone disconnect may sit on the port.
	return c.graph.DropDynamicPort(n)
}

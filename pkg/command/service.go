package command

import (
	"fmt"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/module"
)

// AddService places a new service container on the canvas.
type AddService struct {
	graph Graph
	stack *Stack

	descriptor *module.Descriptor
	position   graph.Position
	id         types.NodeID

	// container is non-nil iff the node is in the graph.
	container *graph.Node
}

// NewAddService creates a command instantiating d at pos. The node is created
// when the command is pushed.
func NewAddService(g Graph, s *Stack, d *module.Descriptor, pos graph.Position) *AddService {
	return &AddService{graph: g, stack: s, descriptor: d, position: pos}
}

func (c *AddService) sealed() {}

// Label returns "add service".
func (c *AddService) Label() string { return LabelAddService }

// CanExecute reports whether there is a descriptor to instantiate.
func (c *AddService) CanExecute() bool { return c.descriptor != nil }

// Container returns the live node, or nil while the add is undone.
func (c *AddService) Container() *graph.Node { return c.container }

// Position returns the position the node is (re)created at.
func (c *AddService) Position() graph.Position { return c.position }

// NodeID returns the node's ID once the command has executed.
func (c *AddService) NodeID() types.NodeID { return c.id }

func (c *AddService) execute() error {
	if c.container != nil {
		return fmt.Errorf("%w: service %s already added", ErrPrecondition, c.id)
	}

	var opts []graph.NodeOption
	if !c.id.IsZero() {
		opts = append(opts, graph.WithNodeID(c.id))
	}
	n, err := c.graph.AddNode(c.descriptor, c.position, opts...)
	if err != nil {
		return err
	}
	c.id = n.ID
	c.container = n
	return nil
}

func (c *AddService) undo() error {
	if c.container == nil {
		return nodeGone(c.id)
	}
	pos, err := c.graph.NodePosition(c.container)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	if err := c.graph.RemoveNode(c.container); err != nil {
		return err
	}
	c.position = pos
	c.container = nil

	c.stack.RemoveWhere(func(other Command) bool {
		if other == Command(c) {
			return false
		}
		switch o := other.(type) {
		case *AddService:
			return o.id == c.id
		case *RemoveService:
			return o.id == c.id
		}
		return false
	})
	return nil
}

func (c *AddService) redo() error {
	return c.execute()
}

// savedWire is a wire attached to a removed node, kept to restore it.
type savedWire struct {
	from, to graph.TerminalRef
	layer    string
	config   module.WireConfig
	valid    bool
}

// RemoveService removes a service container and everything wired to it.
type RemoveService struct {
	graph Graph
	stack *Stack

	id         types.NodeID
	descriptor *module.Descriptor
	position   graph.Position
	params     form.Snapshot
	ports      int
	wires      []savedWire

	// container is non-nil iff the node is in the graph.
	container *graph.Node
}

// NewRemoveService creates a command removing n.
func NewRemoveService(g Graph, s *Stack, n *graph.Node) *RemoveService {
	c := &RemoveService{graph: g, stack: s, container: n}
	if n != nil {
		c.id = n.ID
		c.descriptor = n.Module
		c.position = n.Position()
	}
	return c
}

func (c *RemoveService) sealed() {}

// Label returns "remove service".
func (c *RemoveService) Label() string { return LabelRemoveService }

// CanExecute reports whether the command has a node to remove.
func (c *RemoveService) CanExecute() bool { return !c.id.IsZero() }

// Container returns the live node, or nil while the node is removed.
func (c *RemoveService) Container() *graph.Node { return c.container }

// NodeID returns the removed node's ID.
func (c *RemoveService) NodeID() types.NodeID { return c.id }

func (c *RemoveService) execute() error {
	if err := c.remove(); err != nil {
		return err
	}

	// History touching the node is unreachable once it is gone.
	c.stack.RemoveWhere(func(other Command) bool {
		switch other.(type) {
		case *AddService, *MoveService, *ChangeDynamicPorts, *ChangeParameter,
			*ConnectPort, *DisconnectPort:
			return referencesNode(other, c.id)
		}
		return false
	})
	return nil
}

// remove captures everything needed to restore the node, then removes it.
func (c *RemoveService) remove() error {
	n, err := liveNode(c.graph, c.id)
	if err != nil {
		return err
	}
	if n.Module == nil {
		return fmt.Errorf("%w: node %s has no module descriptor", ErrPrecondition, c.id)
	}
	pos, err := c.graph.NodePosition(n)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	wires := make([]savedWire, 0)
	for _, w := range c.graph.WiresOf(n) {
		wires = append(wires, savedWire{from: w.From, to: w.To, layer: w.Layer, config: w.Config, valid: w.Valid()})
	}
	params := n.Form.GetValue()
	ports := n.DynamicPortCount()

	if err := c.graph.RemoveNode(n); err != nil {
		return err
	}

	c.descriptor = n.Module
	c.position = pos
	c.params = params
	c.ports = ports
	c.wires = wires
	c.container = nil
	return nil
}

func (c *RemoveService) undo() error {
	if c.container != nil {
		return fmt.Errorf("%w: service %s is still in the graph", ErrPrecondition, c.id)
	}
	if _, ok := c.graph.Node(c.id); ok {
		return fmt.Errorf("%w: node %s already exists", ErrPrecondition, c.id)
	}
	// Every wire's far end must be back before the node is.
	for _, w := range c.wires {
		far := w.to
		if far.NodeID == c.id {
			far = w.from
		}
		if _, ok := c.graph.Node(far.NodeID); !ok {
			return fmt.Errorf("%w: wire end %s is not in the graph", ErrPrecondition, far)
		}
	}

	n, err := c.graph.AddNode(c.descriptor, c.position, graph.WithNodeID(c.id))
	if err != nil {
		return err
	}
	if err := c.restore(n); err != nil {
		// Leave the graph as it was before the undo.
		_ = c.graph.RemoveNode(n)
		return err
	}
	c.container = n
	return nil
}

func (c *RemoveService) restore(n *graph.Node) error {
	for n.DynamicPortCount() < c.ports {
		if _, err := c.graph.AddDynamicPort(n); err != nil {
			return err
		}
	}
	if c.params != nil {
		if err := n.Form.SetValue(c.params, false); err != nil {
			return err
		}
	}
	for _, w := range c.wires {
		created, err := c.graph.CreateWire(w.from, w.to, w.layer, w.config, w.valid)
		if err != nil {
			return err
		}
		if err := c.graph.RedrawWire(created); err != nil {
			return err
		}
	}
	return nil
}

func (c *RemoveService) redo() error {
	return c.execute()
}

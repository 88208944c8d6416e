package command

import (
	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/graph"
)

// MoveService records a drag of a service container. The drag has already
// moved the node when the command is pushed.
type MoveService struct {
	graph  Graph
	id     types.NodeID
	oldPos graph.Position
	newPos graph.Position
}

// NewMoveService creates a command for moving node id from oldPos to newPos.
func NewMoveService(g Graph, id types.NodeID, oldPos, newPos graph.Position) *MoveService {
	return &MoveService{graph: g, id: id, oldPos: oldPos, newPos: newPos}
}

func (c *MoveService) sealed() {}

// Label returns "move service".
func (c *MoveService) Label() string { return LabelMoveService }

// CanExecute is false for a move that goes nowhere.
func (c *MoveService) CanExecute() bool { return c.oldPos != c.newPos }

// NodeID returns the moved node's ID.
func (c *MoveService) NodeID() types.NodeID { return c.id }

// Positions returns the positions before and after the move.
func (c *MoveService) Positions() (oldPos, newPos graph.Position) {
	return c.oldPos, c.newPos
}

func (c *MoveService) execute() error { return nil }

func (c *MoveService) undo() error { return c.moveTo(c.oldPos) }

func (c *MoveService) redo() error { return c.moveTo(c.newPos) }

func (c *MoveService) moveTo(pos graph.Position) error {
	n, err := liveNode(c.graph, c.id)
	if err != nil {
		return err
	}
	if err := c.graph.SetNodePosition(n, pos); err != nil {
		return err
	}
	return c.graph.RedrawWires(n)
}

package command

import (
	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/form"
)

// ChangeParameter records an edit to a service container's parameter form.
// The edit has already been applied when the command is pushed.
type ChangeParameter struct {
	graph    Graph
	id       types.NodeID
	oldValue form.Snapshot
	newValue form.Snapshot
}

// NewChangeParameter creates a command changing node id's parameters from
// oldValue to newValue. Both snapshots are copied.
func NewChangeParameter(g Graph, id types.NodeID, oldValue, newValue form.Snapshot) *ChangeParameter {
	return &ChangeParameter{
		graph:    g,
		id:       id,
		oldValue: form.Capture(oldValue),
		newValue: form.Capture(newValue),
	}
}

func (c *ChangeParameter) sealed() {}

// Label returns "change parameter".
func (c *ChangeParameter) Label() string { return LabelChangeParameter }

// CanExecute is false when the snapshots are equal.
func (c *ChangeParameter) CanExecute() bool { return !c.oldValue.Equal(c.newValue) }

// NodeID returns the changed node's ID.
func (c *ChangeParameter) NodeID() types.NodeID { return c.id }

// Values returns copies of the old and new snapshots.
func (c *ChangeParameter) Values() (oldValue, newValue form.Snapshot) {
	return c.oldValue.Clone(), c.newValue.Clone()
}

func (c *ChangeParameter) execute() error { return nil }

func (c *ChangeParameter) undo() error { return c.apply(c.oldValue) }

func (c *ChangeParameter) redo() error { return c.apply(c.newValue) }

func (c *ChangeParameter) apply(value form.Snapshot) error {
	n, err := liveNode(c.graph, c.id)
	if err != nil {
		return err
	}
	return n.Form.SetValue(value, false)
}

// ChangeWorkflowInfo records an edit to the workflow metadata form.
type ChangeWorkflowInfo struct {
	form     Form
	oldValue form.Snapshot
	newValue form.Snapshot
}

// NewChangeWorkflowInfo creates a command changing f from oldValue to
// newValue. Both snapshots are copied.
func NewChangeWorkflowInfo(f Form, oldValue, newValue form.Snapshot) *ChangeWorkflowInfo {
	return &ChangeWorkflowInfo{
		form:     f,
		oldValue: form.Capture(oldValue),
		newValue: form.Capture(newValue),
	}
}

func (c *ChangeWorkflowInfo) sealed() {}

// Label returns "change workflow info".
func (c *ChangeWorkflowInfo) Label() string { return LabelChangeWorkflowInfo }

// CanExecute is false without a form or when the snapshots are equal.
func (c *ChangeWorkflowInfo) CanExecute() bool {
	return c.form != nil && !c.oldValue.Equal(c.newValue)
}

// Values returns copies of the old and new snapshots.
func (c *ChangeWorkflowInfo) Values() (oldValue, newValue form.Snapshot) {
	return c.oldValue.Clone(), c.newValue.Clone()
}

func (c *ChangeWorkflowInfo) execute() error { return nil }

func (c *ChangeWorkflowInfo) undo() error { return c.form.SetValue(c.oldValue, false) }

func (c *ChangeWorkflowInfo) redo() error { return c.form.SetValue(c.newValue, false) }

package command

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/module"
)

type fixture struct {
	t       *testing.T
	graph   *graph.Graph
	stack   *Stack
	catalog *module.Catalog
	removed int // valid wire removals seen by the hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		graph:   graph.New(),
		stack:   NewStack(0),
		catalog: module.Builtin(),
	}
	f.graph.OnWireRemoved(func(*graph.Wire) { f.removed++ })
	return f
}

func (f *fixture) descriptor(name string) *module.Descriptor {
	f.t.Helper()
	d, err := f.catalog.Lookup(name)
	require.NoError(f.t, err)
	return d
}

func (f *fixture) add(name string, x, y int) *AddService {
	f.t.Helper()
	cmd := NewAddService(f.graph, f.stack, f.descriptor(name), graph.NewPosition(x, y))
	require.NoError(f.t, f.stack.Push(cmd))
	require.NotNil(f.t, cmd.Container())
	return cmd
}

func (f *fixture) connect(from types.NodeID, fromPort string, to types.NodeID, toPort string) *ConnectPort {
	f.t.Helper()
	w, err := f.graph.CreateWire(
		graph.TerminalRef{NodeID: from, Port: fromPort},
		graph.TerminalRef{NodeID: to, Port: toPort},
		"", module.DefaultWireConfig, true)
	require.NoError(f.t, err)
	cmd := NewConnectPort(f.graph, w)
	require.NoError(f.t, f.stack.Push(cmd))
	return cmd
}

// disconnect removes connect's wire the way a user would and pushes the
// resulting DisconnectPort.
func (f *fixture) disconnect(connect *ConnectPort) *DisconnectPort {
	f.t.Helper()
	w := connect.Wire()
	require.NoError(f.t, f.graph.RemoveWire(w))
	cmd := NewDisconnectPort(f.graph, f.stack, w)
	require.NoError(f.t, f.stack.Push(cmd))
	return cmd
}

func (f *fixture) node(id types.NodeID) *graph.Node {
	f.t.Helper()
	n, ok := f.graph.Node(id)
	require.True(f.t, ok, "node %s not in graph", id)
	return n
}

// state renders everything undo/redo can affect, independent of object
// identity and wire IDs.
func (f *fixture) state() string {
	var b strings.Builder
	for _, n := range f.graph.Nodes() {
		fmt.Fprintf(&b, "node %s %s %s ports=%d params=%v\n",
			n.ID, n.Module.Name, n.Position(), n.DynamicPortCount(), map[string]any(n.Form.GetValue()))
	}
	wires := make([]string, 0)
	for _, w := range f.graph.Wires() {
		wires = append(wires, fmt.Sprintf("wire %s -> %s on %s valid=%t", w.From, w.To, w.Layer, w.Valid()))
	}
	sort.Strings(wires)
	for _, w := range wires {
		b.WriteString(w + "\n")
	}
	fmt.Fprintf(&b, "info %v\n", map[string]any(f.graph.Info().GetValue()))
	return b.String()
}

func withValue(base form.Snapshot, key string, value any) form.Snapshot {
	out := base.Clone()
	out[key] = value
	return out
}

func TestAddService_UndoRedo(t *testing.T) {
	f := newFixture(t)
	cmd := f.add("transform", 10, 20)
	id := cmd.NodeID()

	nodes := f.graph.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, graph.NewPosition(10, 20), nodes[0].Position())

	require.NoError(t, f.stack.Undo())
	assert.Empty(t, f.graph.Nodes())
	assert.Nil(t, cmd.Container())

	require.NoError(t, f.stack.Redo())
	nodes = f.graph.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, graph.NewPosition(10, 20), nodes[0].Position())
	assert.Equal(t, id, nodes[0].ID, "re-added node keeps its ID")
	assert.Same(t, nodes[0], cmd.Container())
}

func TestAddService_UndoKeepsMovedPosition(t *testing.T) {
	f := newFixture(t)
	cmd := f.add("transform", 10, 20)

	// Moved without a command
	require.NoError(t, f.graph.SetNodePosition(cmd.Container(), graph.NewPosition(70, 80)))

	require.NoError(t, f.stack.Undo())
	assert.Equal(t, graph.NewPosition(70, 80), cmd.Position())

	require.NoError(t, f.stack.Redo())
	assert.Equal(t, graph.NewPosition(70, 80), cmd.Container().Position())
}

func TestAddService_ExecuteTwiceFails(t *testing.T) {
	f := newFixture(t)
	cmd := f.add("transform", 0, 0)

	err := cmd.execute()
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Len(t, f.graph.Nodes(), 1)
}

func TestAddService_UndoInvalidatesPairedCommands(t *testing.T) {
	f := newFixture(t)
	add := f.add("transform", 0, 0)
	other := f.add("condition", 0, 0)

	stale := NewRemoveService(f.graph, f.stack, add.Container())
	f.stack.redo = append(f.stack.redo, stale)

	// Undo the condition, then the transform.
	require.NoError(t, f.stack.Undo())
	require.NoError(t, f.stack.Undo())

	assert.Empty(t, f.stack.UndoCommands())
	assert.Equal(t, []Command{other, add}, f.stack.RedoCommands(), "stale remove is dropped, order kept")
}

func TestRemoveService_InvalidatesNodeHistory(t *testing.T) {
	f := newFixture(t)
	a := f.add("http_request", 0, 0)
	aID := a.NodeID()
	b := f.add("merge", 0, 20)
	bID := b.NodeID()

	require.NoError(t, f.graph.SetNodePosition(f.node(aID), graph.NewPosition(5, 5)))
	require.NoError(t, f.stack.Push(NewMoveService(f.graph, aID, graph.NewPosition(0, 0), graph.NewPosition(5, 5))))

	oldParams := f.node(aID).Form.GetValue()
	newParams := withValue(oldParams, "retries", 3)
	require.NoError(t, f.node(aID).Form.SetValue(newParams, false))
	require.NoError(t, f.stack.Push(NewChangeParameter(f.graph, aID, oldParams, newParams)))

	_, err := f.graph.AddDynamicPort(f.node(bID))
	require.NoError(t, err)
	dyn := NewChangeDynamicPorts(f.graph, bID, true)
	require.NoError(t, f.stack.Push(dyn))

	f.connect(aID, "out", bID, "in1")

	remove := NewRemoveService(f.graph, f.stack, f.node(aID))
	require.NoError(t, f.stack.Push(remove))

	assert.Equal(t, []Command{b, dyn, remove}, f.stack.UndoCommands())
	for _, cmd := range f.stack.UndoCommands() {
		if cmd != remove {
			assert.False(t, referencesNode(cmd, aID), "%s still references removed node", cmd.Label())
		}
	}
	assert.Nil(t, remove.Container())
	assert.Empty(t, f.graph.Wires())
	assert.Zero(t, f.removed, "wires dropped with the node are silent")

	// Undo restores the node, its parameters and its wire.
	require.NoError(t, f.stack.Undo())
	restored := f.node(aID)
	assert.Same(t, restored, remove.Container())
	assert.Equal(t, graph.NewPosition(5, 5), restored.Position())
	assert.Equal(t, 3, restored.Form.GetValue()["retries"])
	require.Len(t, f.graph.Wires(), 1)

	// Walk the remaining history both ways without touching the removed node.
	for f.stack.CanUndo() {
		require.NoError(t, f.stack.Undo())
	}
	for f.stack.CanRedo() {
		require.NoError(t, f.stack.Redo())
	}
	_, ok := f.graph.Node(aID)
	assert.False(t, ok)
	assert.Equal(t, 2, f.node(bID).DynamicPortCount())
}

func TestRemoveService_StaleNodeFails(t *testing.T) {
	f := newFixture(t)
	a := f.add("transform", 0, 0)
	n := a.Container()
	require.NoError(t, f.graph.RemoveNode(n))

	err := f.stack.Push(NewRemoveService(f.graph, f.stack, n))
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, []Command{a}, f.stack.UndoCommands())
}

func TestRemoveService_RestoresDynamicPorts(t *testing.T) {
	f := newFixture(t)
	m := f.add("merge", 0, 0)
	id := m.NodeID()
	for i := 0; i < 2; i++ {
		_, err := f.graph.AddDynamicPort(f.node(id))
		require.NoError(t, err)
	}

	require.NoError(t, f.stack.Push(NewRemoveService(f.graph, f.stack, f.node(id))))
	require.NoError(t, f.stack.Undo())
	assert.Equal(t, 3, f.node(id).DynamicPortCount())
}

func TestMoveService_UndoRedo(t *testing.T) {
	f := newFixture(t)
	a := f.add("form", 0, 0)
	b := f.add("transform", 0, 30)
	c := f.connect(a.NodeID(), "out", b.NodeID(), "in")
	w := c.Wire()
	base := w.Redraws()

	// The drag already moved the node.
	require.NoError(t, f.graph.SetNodePosition(a.Container(), graph.NewPosition(50, 50)))
	require.NoError(t, f.stack.Push(NewMoveService(f.graph, a.NodeID(), graph.NewPosition(0, 0), graph.NewPosition(50, 50))))
	assert.Equal(t, base, w.Redraws(), "execute is a no-op")

	require.NoError(t, f.stack.Undo())
	assert.Equal(t, graph.NewPosition(0, 0), a.Container().Position())
	assert.Equal(t, base+1, w.Redraws())

	require.NoError(t, f.stack.Redo())
	assert.Equal(t, graph.NewPosition(50, 50), a.Container().Position())
	assert.Equal(t, base+2, w.Redraws())
}

func TestMoveService_NowhereCannotExecute(t *testing.T) {
	f := newFixture(t)
	a := f.add("form", 3, 3)

	err := f.stack.Push(NewMoveService(f.graph, a.NodeID(), graph.NewPosition(3, 3), graph.NewPosition(3, 3)))
	assert.ErrorIs(t, err, ErrCannotExecute)
	assert.Len(t, f.stack.UndoCommands(), 1)
}

func TestConnectPort_RedoCreatesNewWire(t *testing.T) {
	f := newFixture(t)
	a := f.add("form", 0, 0)
	b := f.add("transform", 0, 30)
	t1 := graph.TerminalRef{NodeID: a.NodeID(), Port: "out"}
	t2 := graph.TerminalRef{NodeID: b.NodeID(), Port: "in"}

	cmd := f.connect(t1.NodeID, t1.Port, t2.NodeID, t2.Port)
	original := cmd.Wire()
	assert.Equal(t, 1, original.Redraws(), "execute redraws the wire")

	require.NoError(t, f.stack.Undo())
	assert.Empty(t, f.graph.Wires())
	assert.Zero(t, f.removed, "undo must not look like a user disconnect")
	term1, term2 := cmd.Terminals()
	assert.Equal(t, t1, term1)
	assert.Equal(t, t2, term2)

	require.NoError(t, f.stack.Redo())
	wires := f.graph.Wires()
	require.Len(t, wires, 1)
	assert.NotSame(t, original, cmd.Wire())
	assert.Same(t, wires[0], cmd.Wire())
	assert.True(t, cmd.Wire().Connects(t1, t2))
	assert.True(t, cmd.Wire().Valid())
	assert.Equal(t, 1, cmd.Wire().Redraws())
}

func TestConnectPort_RedoUsesFirstTerminalWireConfig(t *testing.T) {
	f := newFixture(t)
	a := f.add("http_request", 0, 0)
	b := f.add("transform", 0, 30)

	w, err := f.graph.CreateWire(
		graph.TerminalRef{NodeID: a.NodeID(), Port: "error"},
		graph.TerminalRef{NodeID: b.NodeID(), Port: "in"},
		"errors", module.DefaultWireConfig, true)
	require.NoError(t, err)
	cmd := NewConnectPort(f.graph, w)
	require.NoError(t, f.stack.Push(cmd))

	require.NoError(t, f.stack.Undo())
	require.NoError(t, f.stack.Redo())

	assert.Equal(t, "#d0021b", cmd.Wire().Config.Color)
	assert.Equal(t, "errors", cmd.Wire().Layer)
}

func TestDisconnectPort(t *testing.T) {
	f := newFixture(t)
	a := f.add("http_request", 0, 0)
	b := f.add("merge", 0, 30)
	t1 := graph.TerminalRef{NodeID: a.NodeID(), Port: "out"}
	t2 := graph.TerminalRef{NodeID: b.NodeID(), Port: "in1"}

	connect := f.connect(t1.NodeID, t1.Port, t2.NodeID, t2.Port)
	keep := f.connect(a.NodeID(), "error", b.NodeID(), "out")

	// User removes the wire; the editor records the disconnect.
	w := connect.Wire()
	require.NoError(t, f.graph.RemoveWire(w))
	assert.Equal(t, 1, f.removed)
	disconnect := NewDisconnectPort(f.graph, f.stack, w)
	require.NoError(t, f.stack.Push(disconnect))

	assert.NotContains(t, f.stack.UndoCommands(), Command(connect))
	assert.Contains(t, f.stack.UndoCommands(), Command(keep))
	assert.Nil(t, disconnect.Wire())

	require.NoError(t, f.stack.Undo())
	restored := disconnect.Wire()
	require.NotNil(t, restored)
	assert.True(t, f.graph.HasWire(restored))
	assert.True(t, restored.Connects(t2, t1))

	require.NoError(t, f.stack.Redo())
	assert.Nil(t, disconnect.Wire())
	assert.False(t, f.graph.HasWire(restored))
	assert.Equal(t, 1, f.removed, "redo must not record another disconnect")
}

func TestDisconnectPort_RemovesConnectInEitherOrientation(t *testing.T) {
	f := newFixture(t)
	a := f.add("form", 0, 0)
	b := f.add("transform", 0, 30)

	connect := f.connect(a.NodeID(), "out", b.NodeID(), "in")
	require.NoError(t, f.stack.Undo()) // connect now on the redo stack

	reversed, err := f.graph.CreateWire(
		graph.TerminalRef{NodeID: b.NodeID(), Port: "in"},
		graph.TerminalRef{NodeID: a.NodeID(), Port: "out"},
		"", module.DefaultWireConfig, true)
	require.NoError(t, err)
	require.NoError(t, f.graph.RemoveWire(reversed))

	var invalidated []Command
	f.stack.observer = ObserverFunc(func(e Event) {
		if e.Action == ActionInvalidate {
			invalidated = append(invalidated, e.Command)
		}
	})

	require.NoError(t, f.stack.Push(NewDisconnectPort(f.graph, f.stack, reversed)))
	assert.Equal(t, []Command{connect}, invalidated)
	assert.NotContains(t, f.stack.UndoCommands(), Command(connect))
}

func TestChangeParameter_SilentUndoRedo(t *testing.T) {
	f := newFixture(t)
	a := f.add("http_request", 0, 0)
	n := a.Container()

	notified := 0
	n.Form.OnChange(func(_, _ form.Snapshot) { notified++ })

	oldValue := withValue(n.Form.GetValue(), "retries", 1)
	newValue := withValue(n.Form.GetValue(), "retries", 2)
	require.NoError(t, n.Form.SetValue(newValue, false))
	require.NoError(t, f.stack.Push(NewChangeParameter(f.graph, n.ID, oldValue, newValue)))
	assert.Equal(t, 2, n.Form.GetValue()["retries"], "execute leaves the edit in place")

	require.NoError(t, f.stack.Undo())
	assert.Equal(t, 1, n.Form.GetValue()["retries"])
	assert.Zero(t, notified)

	require.NoError(t, f.stack.Redo())
	assert.Equal(t, 2, n.Form.GetValue()["retries"])
	assert.Zero(t, notified)
}

func TestChangeParameter_SnapshotsAreCopied(t *testing.T) {
	f := newFixture(t)
	a := f.add("http_request", 0, 0)
	n := a.Container()

	oldValue := n.Form.GetValue()
	newValue := withValue(oldValue, "method", "POST")
	cmd := NewChangeParameter(f.graph, n.ID, oldValue, newValue)
	newValue["method"] = "PUT"

	_, got := cmd.Values()
	assert.Equal(t, "POST", got["method"])

	equal := NewChangeParameter(f.graph, n.ID, oldValue, oldValue)
	assert.False(t, equal.CanExecute())
}

func TestChangeWorkflowInfo(t *testing.T) {
	f := newFixture(t)
	info := f.graph.Info()

	notified := 0
	info.OnChange(func(_, _ form.Snapshot) { notified++ })

	oldValue := info.GetValue()
	newValue := withValue(oldValue, "name", "Checkout")
	require.NoError(t, info.SetValue(newValue, false))
	require.NoError(t, f.stack.Push(NewChangeWorkflowInfo(info, oldValue, newValue)))

	require.NoError(t, f.stack.Undo())
	assert.Equal(t, "Untitled workflow", info.GetValue()["name"])
	require.NoError(t, f.stack.Redo())
	assert.Equal(t, "Checkout", info.GetValue()["name"])
	assert.Zero(t, notified)
}

func TestChangeDynamicPorts(t *testing.T) {
	tests := []struct {
		name      string
		portAdded bool
		before    int
		afterUndo int
	}{
		{name: "added", portAdded: true, before: 3, afterUndo: 2},
		{name: "removed", portAdded: false, before: 1, afterUndo: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			m := f.add("merge", 0, 0)
			n := m.Container()
			_, err := f.graph.AddDynamicPort(n)
			require.NoError(t, err)

			// The user action itself.
			if tt.portAdded {
				_, err = f.graph.AddDynamicPort(n)
			} else {
				err = f.graph.RemoveDynamicPort(n)
			}
			require.NoError(t, err)
			require.Equal(t, tt.before, n.DynamicPortCount())

			require.NoError(t, f.stack.Push(NewChangeDynamicPorts(f.graph, n.ID, tt.portAdded)))
			assert.Equal(t, tt.before, n.DynamicPortCount())

			require.NoError(t, f.stack.Undo())
			assert.Equal(t, tt.afterUndo, n.DynamicPortCount())

			require.NoError(t, f.stack.Redo())
			assert.Equal(t, tt.before, n.DynamicPortCount())
		})
	}
}

func TestRoundTripLaw(t *testing.T) {
	f := newFixture(t)

	a := f.add("http_request", 0, 0)
	aID := a.NodeID()
	b := f.add("merge", 0, 30)
	bID := b.NodeID()

	require.NoError(t, f.graph.SetNodePosition(f.node(aID), graph.NewPosition(12, 4)))
	require.NoError(t, f.stack.Push(NewMoveService(f.graph, aID, graph.NewPosition(0, 0), graph.NewPosition(12, 4))))

	f.connect(aID, "out", bID, "in1")

	oldParams := f.node(aID).Form.GetValue()
	newParams := withValue(oldParams, "url", "https://example.com/${order.id}")
	require.NoError(t, f.node(aID).Form.SetValue(newParams, false))
	require.NoError(t, f.stack.Push(NewChangeParameter(f.graph, aID, oldParams, newParams)))

	_, err := f.graph.AddDynamicPort(f.node(bID))
	require.NoError(t, err)
	require.NoError(t, f.stack.Push(NewChangeDynamicPorts(f.graph, bID, true)))

	info := f.graph.Info()
	oldInfo := info.GetValue()
	newInfo := withValue(oldInfo, "author", "ops")
	require.NoError(t, info.SetValue(newInfo, false))
	require.NoError(t, f.stack.Push(NewChangeWorkflowInfo(info, oldInfo, newInfo)))

	c := f.add("condition", 40, 40)
	f.connect(bID, "out", c.NodeID(), "in")

	// A disconnect on the dynamic port supersedes its connect.
	f.disconnect(f.connect(aID, "error", bID, "in2"))

	// Removing d supersedes its add and its connect.
	d := f.add("transform", 80, 0)
	f.connect(aID, "out", d.NodeID(), "in")
	require.NoError(t, f.stack.Push(NewRemoveService(f.graph, f.stack, f.node(d.NodeID()))))

	want := f.state()
	removed := f.removed
	depth := len(f.stack.UndoCommands())
	require.Equal(t, 11, depth)

	for n := 1; n <= depth; n++ {
		for i := 0; i < n; i++ {
			require.NoError(t, f.stack.Undo(), "undo %d of %d", i+1, n)
		}
		for i := 0; i < n; i++ {
			require.NoError(t, f.stack.Redo(), "redo %d of %d", i+1, n)
		}
		require.Equal(t, want, f.state(), "round trip with N=%d", n)
	}
	assert.Equal(t, removed, f.removed, "replay must not record disconnects")
}

func TestDisconnectPort_RedoAfterEndpointUndone(t *testing.T) {
	f := newFixture(t)
	a := f.add("http_request", 0, 0)
	b := f.add("merge", 0, 30)
	f.disconnect(f.connect(a.NodeID(), "out", b.NodeID(), "in1"))

	want := f.state()
	require.Len(t, f.stack.UndoCommands(), 3)

	// The restored wire is dropped with its endpoint.
	for i := 0; i < 3; i++ {
		require.NoError(t, f.stack.Undo())
	}
	assert.Empty(t, f.graph.Nodes())

	for i := 0; i < 3; i++ {
		require.NoError(t, f.stack.Redo(), "redo %d", i+1)
	}
	assert.Equal(t, want, f.state())
	assert.False(t, f.stack.CanRedo())
}

func TestChangeDynamicPorts_UndoDropsRestoredWire(t *testing.T) {
	f := newFixture(t)
	a := f.add("http_request", 0, 0)
	b := f.add("merge", 0, 30)
	_, err := f.graph.AddDynamicPort(b.Container())
	require.NoError(t, err)
	require.NoError(t, f.stack.Push(NewChangeDynamicPorts(f.graph, b.NodeID(), true)))
	f.disconnect(f.connect(a.NodeID(), "out", b.NodeID(), "in2"))

	want := f.state()
	removed := f.removed

	for f.stack.CanUndo() {
		require.NoError(t, f.stack.Undo())
	}
	assert.Empty(t, f.graph.Nodes())
	assert.Empty(t, f.graph.Wires())

	for f.stack.CanRedo() {
		require.NoError(t, f.stack.Redo())
	}
	assert.Equal(t, want, f.state())
	assert.Equal(t, removed, f.removed)
}

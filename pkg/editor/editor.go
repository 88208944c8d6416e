package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/dshills/flowedit/pkg/command"
	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/logging"
	"github.com/dshills/flowedit/pkg/module"
	"github.com/dshills/flowedit/pkg/storage"
)

// ErrNoChange is returned by gestures that would record an empty command.
var ErrNoChange = errors.New("gesture changes nothing")

// ErrNoParameter is returned when a parameter path does not resolve.
var ErrNoParameter = errors.New("no such parameter")

// Journal receives every stack event. *storage.SQLiteJournal implements it.
type Journal interface {
	Record(ctx context.Context, entry storage.JournalEntry) error
}

var _ Journal = (*storage.SQLiteJournal)(nil)

// WorkflowInfo is the decoded workflow metadata form.
type WorkflowInfo struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Author      string `mapstructure:"author"`
	Version     string `mapstructure:"version"`
}

// HistoryEntry describes one command in the timeline.
type HistoryEntry struct {
	Label       string
	NodeID      types.NodeID
	Description string
	Undone      bool
}

// Editor owns one workflow graph and its command history.
type Editor struct {
	mu sync.Mutex

	graph    *graph.Graph
	stack    *command.Stack
	catalog  *module.Catalog
	logger   *slog.Logger
	journal  Journal
	session  types.SessionID
	seq      int
	capacity int
	observer command.Observer

	events  []command.Event // stack events not yet journaled
	hookErr error           // failure recorded from inside a graph or form hook
	watched map[types.NodeID]formWatch
	unhook  func()
	unInfo  func()
}

// formWatch is the change listener on one node instance's form.
type formWatch struct {
	form   *form.Form
	remove func()
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithJournal records every stack event to j.
func WithJournal(j Journal) Option {
	return func(e *Editor) {
		e.journal = j
	}
}

// WithCapacity bounds the undo history.
func WithCapacity(n int) Option {
	return func(e *Editor) {
		e.capacity = n
	}
}

// WithObserver adds an observer of stack events, e.g. a metrics collector.
func WithObserver(o command.Observer) Option {
	return func(e *Editor) {
		e.observer = o
	}
}

// WithSession sets the session ID used for journal entries.
func WithSession(id types.SessionID) Option {
	return func(e *Editor) {
		e.session = id
	}
}

// New creates an editor with an empty graph. catalog supplies the modules
// services are instantiated from; nil means the built-in catalog.
func New(catalog *module.Catalog, opts ...Option) *Editor {
	if catalog == nil {
		catalog = module.Builtin()
	}
	e := &Editor{
		graph:   graph.New(),
		catalog: catalog,
		logger:  logging.NewNop(),
		session: types.NewSessionID(),
		watched: make(map[types.NodeID]formWatch),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.stack = command.NewStack(e.capacity, command.WithObserver(command.Observers(
		command.ObserverFunc(e.collect),
		e.observer,
	)))
	e.unhook = e.graph.OnWireRemoved(e.onWireRemoved)
	e.unInfo = e.graph.Info().OnChange(e.onInfoChanged)
	return e
}

// Close detaches the editor's hooks from the graph and forms.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unhook()
	e.unInfo()
	for id, w := range e.watched {
		w.remove()
		delete(e.watched, id)
	}
}

// Session returns the editor's session ID.
func (e *Editor) Session() types.SessionID {
	return e.session
}

// View calls fn with the graph while holding the editor lock. fn must not
// call back into the editor or mutate the graph.
func (e *Editor) View(fn func(g *graph.Graph)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.graph)
}

// AddService places a new service from module name at pos.
func (e *Editor) AddService(ctx context.Context, name string, pos graph.Position) (types.NodeID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	d, err := e.catalog.Lookup(name)
	if err != nil {
		return "", err
	}
	cmd := command.NewAddService(e.graph, e.stack, d, pos)
	if err := e.push(cmd); err != nil {
		return "", err
	}
	e.syncWatches()
	return cmd.NodeID(), nil
}

// RemoveService removes node id and everything wired to it.
func (e *Editor) RemoveService(ctx context.Context, id types.NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	n, err := e.node(id)
	if err != nil {
		return err
	}
	err = e.push(command.NewRemoveService(e.graph, e.stack, n))
	e.syncWatches()
	return err
}

// MoveService finishes a drag of node id to pos.
func (e *Editor) MoveService(ctx context.Context, id types.NodeID, pos graph.Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	n, err := e.node(id)
	if err != nil {
		return err
	}
	oldPos := n.Position()
	if oldPos == pos {
		return ErrNoChange
	}

	// The drag moves the node before the command is recorded.
	if err := e.graph.SetNodePosition(n, pos); err != nil {
		return err
	}
	if err := e.graph.RedrawWires(n); err != nil {
		return err
	}
	if err := e.push(command.NewMoveService(e.graph, id, oldPos, pos)); err != nil {
		_ = e.graph.SetNodePosition(n, oldPos)
		_ = e.graph.RedrawWires(n)
		return err
	}
	return nil
}

// Connect draws a confirmed wire from one terminal to another. The wire uses
// the first terminal's wire configuration.
func (e *Editor) Connect(ctx context.Context, from, to graph.TerminalRef) (*graph.Wire, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	t, err := e.graph.Terminal(from)
	if err != nil {
		return nil, err
	}
	w, err := e.graph.CreateWire(from, to, graph.DefaultLayer, t.Wire, true)
	if err != nil {
		return nil, err
	}
	if err := e.push(command.NewConnectPort(e.graph, w)); err != nil {
		w.ClearValid()
		_ = e.graph.RemoveWire(w)
		return nil, err
	}
	return w, nil
}

// Disconnect removes the wire between a and b. Removing a confirmed wire
// records a DisconnectPort through the graph's wire-removed hook.
func (e *Editor) Disconnect(ctx context.Context, a, b graph.TerminalRef) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	w, ok := e.graph.WireBetween(a, b)
	if !ok {
		return fmt.Errorf("%w: %s to %s", graph.ErrWireNotFound, a, b)
	}
	if err := e.graph.RemoveWire(w); err != nil {
		return err
	}
	return e.takeHookErr()
}

// SetParameters replaces node id's parameter values. The form's change
// notification records the ChangeParameter.
func (e *Editor) SetParameters(ctx context.Context, id types.NodeID, values form.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	n, err := e.node(id)
	if err != nil {
		return err
	}
	if n.Form.GetValue().Equal(values) {
		return ErrNoChange
	}
	if err := n.Form.SetValue(values, true); err != nil {
		return err
	}
	return e.takeHookErr()
}

// SetParameter changes a single parameter of node id.
func (e *Editor) SetParameter(ctx context.Context, id types.NodeID, key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	n, err := e.node(id)
	if err != nil {
		return err
	}
	current := n.Form.GetValue()
	next := current.Clone()
	next[key] = value
	if current.Equal(next) {
		return ErrNoChange
	}
	if err := n.Form.SetField(key, value, true); err != nil {
		return err
	}
	return e.takeHookErr()
}

// Parameters returns a copy of node id's parameter values.
func (e *Editor) Parameters(id types.NodeID) (form.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.node(id)
	if err != nil {
		return nil, err
	}
	return n.Form.GetValue(), nil
}

// Parameter reads one parameter of node id by path, e.g. "headers.accept".
func (e *Editor) Parameter(id types.NodeID, path string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.node(id)
	if err != nil {
		return nil, err
	}
	v, ok := n.Form.GetValue().Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no parameter %s", ErrNoParameter, id, path)
	}
	return v, nil
}

// SetWorkflowInfo replaces the workflow metadata.
func (e *Editor) SetWorkflowInfo(ctx context.Context, values form.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	info := e.graph.Info()
	if info.GetValue().Equal(values) {
		return ErrNoChange
	}
	if err := info.SetValue(values, true); err != nil {
		return err
	}
	return e.takeHookErr()
}

// WorkflowInfo decodes the workflow metadata form.
func (e *Editor) WorkflowInfo() (WorkflowInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var info WorkflowInfo
	if err := mapstructure.Decode(map[string]any(e.graph.Info().GetValue()), &info); err != nil {
		return WorkflowInfo{}, fmt.Errorf("failed to decode workflow info: %w", err)
	}
	return info, nil
}

// AddPort adds a dynamic input port to multi-port service id.
func (e *Editor) AddPort(ctx context.Context, id types.NodeID) (*graph.Terminal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	n, err := e.node(id)
	if err != nil {
		return nil, err
	}
	t, err := e.graph.AddDynamicPort(n)
	if err != nil {
		return nil, err
	}
	if err := e.push(command.NewChangeDynamicPorts(e.graph, id, true)); err != nil {
		_ = e.graph.RemoveDynamicPort(n)
		return nil, err
	}
	return t, nil
}

// RemovePort removes the highest numbered dynamic port of service id.
func (e *Editor) RemovePort(ctx context.Context, id types.NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	n, err := e.node(id)
	if err != nil {
		return err
	}
	if err := e.graph.RemoveDynamicPort(n); err != nil {
		return err
	}
	if err := e.push(command.NewChangeDynamicPorts(e.graph, id, false)); err != nil {
		_, _ = e.graph.AddDynamicPort(n)
		return err
	}
	return nil
}

// Undo reverses the most recent command. It is a no-op with empty history.
func (e *Editor) Undo(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	defer e.syncWatches()

	if err := e.stack.Undo(); err != nil {
		e.logger.Warn("undo failed", "error", err)
		return err
	}
	return nil
}

// Redo re-applies the most recently undone command.
func (e *Editor) Redo(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush(ctx)

	defer e.syncWatches()

	if err := e.stack.Redo(); err != nil {
		e.logger.Warn("redo failed", "error", err)
		return err
	}
	return nil
}

// CanUndo reports whether there is anything to undo.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stack.CanUndo()
}

// CanRedo reports whether there is anything to redo.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stack.CanRedo()
}

// NextUndo describes the command Undo would reverse, for an "Undo ..." menu
// entry. ok is false when there is nothing to undo.
func (e *Editor) NextUndo() (desc string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd, ok := e.stack.PeekUndo()
	if !ok {
		return "", false
	}
	return command.Describe(cmd), true
}

// NextRedo describes the command Redo would re-apply.
func (e *Editor) NextRedo() (desc string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmd, ok := e.stack.PeekRedo()
	if !ok {
		return "", false
	}
	return command.Describe(cmd), true
}

// Capacity returns how many commands the undo history keeps.
func (e *Editor) Capacity() int {
	return e.stack.Capacity()
}

// History returns the timeline: applied commands oldest first, followed by
// undone commands in the order Redo would replay them.
func (e *Editor) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	undo := e.stack.UndoCommands()
	redo := e.stack.RedoCommands()
	entries := make([]HistoryEntry, 0, len(undo)+len(redo))
	for _, cmd := range undo {
		entries = append(entries, historyEntry(cmd, false))
	}
	for i := len(redo) - 1; i >= 0; i-- {
		entries = append(entries, historyEntry(redo[i], true))
	}
	return entries
}

func historyEntry(cmd command.Command, undone bool) HistoryEntry {
	return HistoryEntry{
		Label:       cmd.Label(),
		NodeID:      command.Target(cmd),
		Description: command.Describe(cmd),
		Undone:      undone,
	}
}

func (e *Editor) node(id types.NodeID) (*graph.Node, error) {
	n, ok := e.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	return n, nil
}

// push records cmd and logs the outcome. Caller holds e.mu.
func (e *Editor) push(cmd command.Command) error {
	if err := e.stack.Push(cmd); err != nil {
		e.logger.Warn("command rejected", "label", cmd.Label(), "error", err)
		return err
	}
	return nil
}

// onWireRemoved runs inside Disconnect with e.mu held.
func (e *Editor) onWireRemoved(w *graph.Wire) {
	if err := e.push(command.NewDisconnectPort(e.graph, e.stack, w)); err != nil {
		e.hookErr = err
	}
}

func (e *Editor) onInfoChanged(oldValue, newValue form.Snapshot) {
	if err := e.push(command.NewChangeWorkflowInfo(e.graph.Info(), oldValue, newValue)); err != nil {
		e.hookErr = err
	}
}

// syncWatches listens to the form of every live node and drops listeners on
// forms of nodes that left the graph. Undo and redo swap node instances, so
// this runs after every gesture that can. Caller holds e.mu.
func (e *Editor) syncWatches() {
	for id, w := range e.watched {
		if n, ok := e.graph.Node(id); !ok || n.Form != w.form {
			w.remove()
			delete(e.watched, id)
		}
	}
	for _, n := range e.graph.Nodes() {
		if _, ok := e.watched[n.ID]; ok {
			continue
		}
		id := n.ID
		remove := n.Form.OnChange(func(oldValue, newValue form.Snapshot) {
			if err := e.push(command.NewChangeParameter(e.graph, id, oldValue, newValue)); err != nil {
				e.hookErr = err
			}
		})
		e.watched[id] = formWatch{form: n.Form, remove: remove}
	}
}

func (e *Editor) takeHookErr() error {
	err := e.hookErr
	e.hookErr = nil
	return err
}

// collect buffers stack events until the gesture finishes.
func (e *Editor) collect(ev command.Event) {
	e.events = append(e.events, ev)
}

// flush logs and journals the buffered events. Journal failures are logged
// and never fail the gesture. Caller holds e.mu.
func (e *Editor) flush(ctx context.Context) {
	events := e.events
	e.events = nil

	for _, ev := range events {
		label := ""
		if ev.Command != nil {
			label = ev.Command.Label()
		}
		if ev.Err == nil {
			e.logger.Debug("command "+string(ev.Action),
				"label", label,
				"node", command.Target(ev.Command),
				"undo_depth", ev.UndoDepth,
				"redo_depth", ev.RedoDepth,
			)
		}

		if e.journal == nil {
			continue
		}
		e.seq++
		entry := storage.JournalEntry{
			SessionID:   e.session,
			Seq:         e.seq,
			Action:      string(ev.Action),
			Label:       label,
			NodeID:      command.Target(ev.Command),
			Description: command.Describe(ev.Command),
			UndoDepth:   ev.UndoDepth,
			RedoDepth:   ev.RedoDepth,
			RecordedAt:  time.Now(),
		}
		if ev.Err != nil {
			entry.Error = ev.Err.Error()
		}
		if err := e.journal.Record(ctx, entry); err != nil {
			e.logger.Warn("failed to journal command", "label", label, "error", err)
		}
	}
}

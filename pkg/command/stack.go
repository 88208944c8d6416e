package command

import (
	"errors"
	"fmt"

	flowerrors "github.com/dshills/flowedit/pkg/errors"
)

// DefaultCapacity bounds the undo history when no capacity is given.
const DefaultCapacity = 100

// Action names a stack event.
type Action string

const (
	ActionPush       Action = "push"
	ActionUndo       Action = "undo"
	ActionRedo       Action = "redo"
	ActionInvalidate Action = "invalidate"
)

// Event describes one stack transition. Err is set for failed operations,
// in which case the depths are those of the unchanged stack.
type Event struct {
	Action    Action
	Command   Command
	UndoDepth int
	RedoDepth int
	Err       error
}

// Observer is notified after every push, undo, redo and invalidation.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Stack manages undo/redo history of commands.
type Stack struct {
	undo     []Command // oldest first
	redo     []Command // oldest first, the next redo is last
	capacity int
	observer Observer
}

// StackOption configures a Stack.
type StackOption func(*Stack)

// WithObserver sets the stack's observer.
func WithObserver(o Observer) StackOption {
	return func(s *Stack) {
		s.observer = o
	}
}

// NewStack creates an empty stack holding at most capacity undo entries.
func NewStack(capacity int, opts ...StackOption) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &Stack{
		undo:     make([]Command, 0),
		redo:     make([]Command, 0),
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push executes cmd once and appends it to the undo history.
// This clears the redo history. When the history is full the oldest entry is
// dropped. If execute fails the stack is left unchanged.
func (s *Stack) Push(cmd Command) error {
	if cmd == nil {
		return errors.New("cannot push nil command")
	}
	if !cmd.CanExecute() {
		return s.fail(ActionPush, cmd, fmt.Errorf("%w: %s", ErrCannotExecute, Describe(cmd)))
	}

	if err := s.execute(cmd); err != nil {
		return s.fail(ActionPush, cmd, err)
	}

	s.redo = make([]Command, 0)
	if len(s.undo) >= s.capacity {
		// Drop oldest
		copy(s.undo, s.undo[1:])
		s.undo[len(s.undo)-1] = cmd
	} else {
		s.undo = append(s.undo, cmd)
	}

	s.notify(Event{Action: ActionPush, Command: cmd})
	return nil
}

// Undo reverses the most recent command and moves it to the redo history.
// It is a no-op on an empty history.
func (s *Stack) Undo() error {
	if !s.CanUndo() {
		return nil
	}
	cmd := s.undo[len(s.undo)-1]

	if err := s.undoCommand(cmd); err != nil {
		return s.fail(ActionUndo, cmd, err)
	}

	// The command may have invalidated entries below it; move it by identity.
	removeFrom(&s.undo, func(c Command) bool { return c == cmd })
	s.redo = append(s.redo, cmd)

	s.notify(Event{Action: ActionUndo, Command: cmd})
	return nil
}

// Redo re-applies the most recently undone command and moves it back to the
// undo history. It is a no-op when there is nothing to redo.
func (s *Stack) Redo() error {
	if !s.CanRedo() {
		return nil
	}
	cmd := s.redo[len(s.redo)-1]

	if !cmd.CanExecute() {
		return s.fail(ActionRedo, cmd, fmt.Errorf("%w: %s", ErrCannotExecute, Describe(cmd)))
	}
	if err := s.redoCommand(cmd); err != nil {
		return s.fail(ActionRedo, cmd, err)
	}

	removeFrom(&s.redo, func(c Command) bool { return c == cmd })
	s.undo = append(s.undo, cmd)

	s.notify(Event{Action: ActionRedo, Command: cmd})
	return nil
}

// RemoveCommand removes cmd from whichever history holds it.
// Returns false if neither does.
func (s *Stack) RemoveCommand(cmd Command) bool {
	if cmd == nil {
		return false
	}
	return s.RemoveWhere(func(c Command) bool { return c == cmd }) > 0
}

// RemoveWhere removes every command matching pred from both histories and
// returns how many were removed. The relative order of the remaining commands
// is preserved. Removing nothing is not an error.
func (s *Stack) RemoveWhere(pred func(Command) bool) int {
	removed := removeFrom(&s.undo, pred)
	removed = append(removed, removeFrom(&s.redo, pred)...)

	for _, cmd := range removed {
		s.notify(Event{Action: ActionInvalidate, Command: cmd})
	}
	return len(removed)
}

// UndoCommands returns a copy of the undo history, oldest first.
func (s *Stack) UndoCommands() []Command {
	return append([]Command(nil), s.undo...)
}

// RedoCommands returns a copy of the redo history, oldest first. The next
// command to redo is the last element.
func (s *Stack) RedoCommands() []Command {
	return append([]Command(nil), s.redo...)
}

// PeekUndo returns the command the next Undo would reverse.
func (s *Stack) PeekUndo() (Command, bool) {
	if !s.CanUndo() {
		return nil, false
	}
	return s.undo[len(s.undo)-1], true
}

// PeekRedo returns the command the next Redo would re-apply.
func (s *Stack) PeekRedo() (Command, bool) {
	if !s.CanRedo() {
		return nil, false
	}
	return s.redo[len(s.redo)-1], true
}

// CanUndo returns true if undo is available
func (s *Stack) CanUndo() bool {
	return len(s.undo) > 0
}

// CanRedo returns true if redo is available
func (s *Stack) CanRedo() bool {
	return len(s.redo) > 0
}

// Len returns the number of commands in both histories.
func (s *Stack) Len() int {
	return len(s.undo) + len(s.redo)
}

// Capacity returns the maximum undo depth.
func (s *Stack) Capacity() int {
	return s.capacity
}

// Clear resets both histories without touching the graph.
func (s *Stack) Clear() {
	s.undo = make([]Command, 0)
	s.redo = make([]Command, 0)
}

func (s *Stack) execute(cmd Command) error {
	switch c := cmd.(type) {
	case *AddService:
		return c.execute()
	case *RemoveService:
		return c.execute()
	case *MoveService:
		return c.execute()
	case *ConnectPort:
		return c.execute()
	case *DisconnectPort:
		return c.execute()
	case *ChangeParameter:
		return c.execute()
	case *ChangeWorkflowInfo:
		return c.execute()
	case *ChangeDynamicPorts:
		return c.execute()
	default:
		return fmt.Errorf("unknown command type %T", cmd)
	}
}

func (s *Stack) undoCommand(cmd Command) error {
	switch c := cmd.(type) {
	case *AddService:
		return c.undo()
	case *RemoveService:
		return c.undo()
	case *MoveService:
		return c.undo()
	case *ConnectPort:
		return c.undo()
	case *DisconnectPort:
		return c.undo()
	case *ChangeParameter:
		return c.undo()
	case *ChangeWorkflowInfo:
		return c.undo()
	case *ChangeDynamicPorts:
		return c.undo()
	default:
		return fmt.Errorf("unknown command type %T", cmd)
	}
}

func (s *Stack) redoCommand(cmd Command) error {
	switch c := cmd.(type) {
	case *AddService:
		return c.redo()
	case *RemoveService:
		return c.redo()
	case *MoveService:
		return c.redo()
	case *ConnectPort:
		return c.redo()
	case *DisconnectPort:
		return c.redo()
	case *ChangeParameter:
		return c.redo()
	case *ChangeWorkflowInfo:
		return c.redo()
	case *ChangeDynamicPorts:
		return c.redo()
	default:
		return fmt.Errorf("unknown command type %T", cmd)
	}
}

func (s *Stack) fail(action Action, cmd Command, cause error) error {
	s.notify(Event{Action: action, Command: cmd, Err: cause})
	return flowerrors.NewOperationalErrorWithAttrs(string(action), cmd.Label(), Target(cmd).String(), cause, map[string]interface{}{
		"description": Describe(cmd),
		"undo_depth":  len(s.undo),
		"redo_depth":  len(s.redo),
	})
}

func (s *Stack) notify(e Event) {
	if s.observer == nil {
		return
	}
	e.UndoDepth = len(s.undo)
	e.RedoDepth = len(s.redo)
	s.observer.Observe(e)
}

// removeFrom filters list in place and returns the removed commands in their
// original order.
func removeFrom(list *[]Command, pred func(Command) bool) []Command {
	var removed []Command
	kept := (*list)[:0]
	for _, cmd := range *list {
		if pred(cmd) {
			removed = append(removed, cmd)
			continue
		}
		kept = append(kept, cmd)
	}
	// Clear the tail so dropped commands can be collected.
	for i := len(kept); i < len(*list); i++ {
		(*list)[i] = nil
	}
	*list = kept
	return removed
}

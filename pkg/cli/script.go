package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/validation"
)

// Script is a YAML list of editor gestures replayed headlessly.
type Script struct {
	// Modules is an optional catalog file relative to the script.
	Modules string `yaml:"modules"`
	Steps   []Step `yaml:"steps"`
}

// Step is one gesture. Exactly one field must be set.
type Step struct {
	Add        *AddStep       `yaml:"add,omitempty"`
	Remove     *NodeStep      `yaml:"remove,omitempty"`
	Move       *MoveStep      `yaml:"move,omitempty"`
	Connect    *WireStep      `yaml:"connect,omitempty"`
	Disconnect *WireStep      `yaml:"disconnect,omitempty"`
	Set        *SetStep       `yaml:"set,omitempty"`
	Info       map[string]any `yaml:"info,omitempty"`
	AddPort    *NodeStep      `yaml:"add_port,omitempty"`
	RemovePort *NodeStep      `yaml:"remove_port,omitempty"`
	Undo       int            `yaml:"undo,omitempty"`
	Redo       int            `yaml:"redo,omitempty"`
	Expect     *ExpectStep    `yaml:"expect,omitempty"`
}

// AddStep places a service. As names it for later steps.
type AddStep struct {
	Module string `yaml:"module"`
	As     string `yaml:"as"`
	At     []int  `yaml:"at"`
}

// NodeStep targets a named service.
type NodeStep struct {
	Node string `yaml:"node"`
}

// MoveStep drags a service to a new position.
type MoveStep struct {
	Node string `yaml:"node"`
	To   []int  `yaml:"to"`
}

// WireStep names two terminals as "service.port".
type WireStep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// SetStep changes parameters of a service. Unnamed keys keep their value.
type SetStep struct {
	Node   string         `yaml:"node"`
	Values map[string]any `yaml:"values"`
}

// ExpectStep checks a parameter value, read by path (e.g. "headers.accept"),
// without changing anything.
type ExpectStep struct {
	Node   string `yaml:"node"`
	Path   string `yaml:"path"`
	Equals any    `yaml:"equals"`
}

// ParseScript decodes and checks a gesture script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("script has no steps")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

// LoadScript reads a gesture script from path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// CatalogPath resolves the script's module catalog inside scriptDir.
// Returns "" when the script does not name one.
func (s *Script) CatalogPath(scriptDir string) (string, error) {
	if s.Modules == "" {
		return "", nil
	}
	return validation.ResolveWithin(scriptDir, s.Modules)
}

func (s Step) kind() (string, int) {
	kinds := make([]string, 0, 1)
	if s.Add != nil {
		kinds = append(kinds, "add")
	}
	if s.Remove != nil {
		kinds = append(kinds, "remove")
	}
	if s.Move != nil {
		kinds = append(kinds, "move")
	}
	if s.Connect != nil {
		kinds = append(kinds, "connect")
	}
	if s.Disconnect != nil {
		kinds = append(kinds, "disconnect")
	}
	if s.Set != nil {
		kinds = append(kinds, "set")
	}
	if s.Info != nil {
		kinds = append(kinds, "info")
	}
	if s.AddPort != nil {
		kinds = append(kinds, "add_port")
	}
	if s.RemovePort != nil {
		kinds = append(kinds, "remove_port")
	}
	if s.Undo != 0 {
		kinds = append(kinds, "undo")
	}
	if s.Redo != 0 {
		kinds = append(kinds, "redo")
	}
	if s.Expect != nil {
		kinds = append(kinds, "expect")
	}
	if len(kinds) == 0 {
		return "", 0
	}
	return kinds[0], len(kinds)
}

func (s Step) validate() error {
	kind, n := s.kind()
	switch {
	case n == 0:
		return errors.New("empty step")
	case n > 1:
		return errors.New("step must contain exactly one gesture")
	}

	switch kind {
	case "add":
		if s.Add.Module == "" {
			return errors.New("add: module is required")
		}
		if err := validation.ValidateIdentifier(s.Add.As); err != nil {
			return fmt.Errorf("add: invalid name: %w", err)
		}
		if len(s.Add.At) != 2 {
			return errors.New("add: at must be [x, y]")
		}
	case "move":
		if len(s.Move.To) != 2 {
			return errors.New("move: to must be [x, y]")
		}
	case "expect":
		if s.Expect.Path == "" {
			return errors.New("expect: path is required")
		}
	case "undo", "redo":
		if s.Undo < 0 || s.Redo < 0 {
			return fmt.Errorf("%s: count must be positive", kind)
		}
	}
	return nil
}

// Replayer runs script steps against an editor, resolving service names.
type Replayer struct {
	editor *editor.Editor
	names  map[string]types.NodeID
}

// NewReplayer creates a replayer for e.
func NewReplayer(e *editor.Editor) *Replayer {
	return &Replayer{editor: e, names: make(map[string]types.NodeID)}
}

// Names returns the service name for every node added by the script.
func (r *Replayer) Names() map[types.NodeID]string {
	out := make(map[types.NodeID]string, len(r.names))
	for name, id := range r.names {
		out[id] = name
	}
	return out
}

// Run replays every step in order and stops at the first failure.
func (r *Replayer) Run(ctx context.Context, s *Script) error {
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(ctx, step); err != nil {
			kind, _ := step.kind()
			return fmt.Errorf("step %d (%s): %w", i+1, kind, err)
		}
	}
	return nil
}

func (r *Replayer) step(ctx context.Context, s Step) error {
	e := r.editor
	kind, _ := s.kind()

	switch kind {
	case "add":
		if _, exists := r.names[s.Add.As]; exists {
			return fmt.Errorf("service name %q already used", s.Add.As)
		}
		id, err := e.AddService(ctx, s.Add.Module, graph.NewPosition(s.Add.At[0], s.Add.At[1]))
		if err != nil {
			return err
		}
		r.names[s.Add.As] = id
		return nil
	case "remove":
		id, err := r.node(s.Remove.Node)
		if err != nil {
			return err
		}
		return e.RemoveService(ctx, id)
	case "move":
		id, err := r.node(s.Move.Node)
		if err != nil {
			return err
		}
		return e.MoveService(ctx, id, graph.NewPosition(s.Move.To[0], s.Move.To[1]))
	case "connect":
		from, to, err := r.wire(s.Connect)
		if err != nil {
			return err
		}
		_, err = e.Connect(ctx, from, to)
		return err
	case "disconnect":
		from, to, err := r.wire(s.Disconnect)
		if err != nil {
			return err
		}
		return e.Disconnect(ctx, from, to)
	case "set":
		id, err := r.node(s.Set.Node)
		if err != nil {
			return err
		}
		values, err := e.Parameters(id)
		if err != nil {
			return err
		}
		for k, v := range s.Set.Values {
			values[k] = v
		}
		return e.SetParameters(ctx, id, values)
	case "info":
		current, err := e.WorkflowInfo()
		if err != nil {
			return err
		}
		values := form.Snapshot{"name": current.Name, "version": current.Version}
		if current.Description != "" {
			values["description"] = current.Description
		}
		if current.Author != "" {
			values["author"] = current.Author
		}
		for k, v := range s.Info {
			values[k] = v
		}
		return e.SetWorkflowInfo(ctx, values)
	case "add_port":
		id, err := r.node(s.AddPort.Node)
		if err != nil {
			return err
		}
		_, err = e.AddPort(ctx, id)
		return err
	case "remove_port":
		id, err := r.node(s.RemovePort.Node)
		if err != nil {
			return err
		}
		return e.RemovePort(ctx, id)
	case "undo":
		for i := 0; i < s.Undo; i++ {
			if err := e.Undo(ctx); err != nil {
				return err
			}
		}
		return nil
	case "redo":
		for i := 0; i < s.Redo; i++ {
			if err := e.Redo(ctx); err != nil {
				return err
			}
		}
		return nil
	case "expect":
		id, err := r.node(s.Expect.Node)
		if err != nil {
			return err
		}
		got, err := e.Parameter(id, s.Expect.Path)
		if err != nil {
			return err
		}
		// Looked-up numbers are float64; compare the printed forms.
		if fmt.Sprint(got) != fmt.Sprint(s.Expect.Equals) {
			return fmt.Errorf("%s.%s is %v, expected %v", s.Expect.Node, s.Expect.Path, got, s.Expect.Equals)
		}
		return nil
	default:
		return fmt.Errorf("unknown gesture %q", kind)
	}
}

func (r *Replayer) node(name string) (types.NodeID, error) {
	id, ok := r.names[name]
	if !ok {
		return "", fmt.Errorf("unknown service %q", name)
	}
	return id, nil
}

func (r *Replayer) wire(w *WireStep) (graph.TerminalRef, graph.TerminalRef, error) {
	from, err := r.terminal(w.From)
	if err != nil {
		return graph.TerminalRef{}, graph.TerminalRef{}, err
	}
	to, err := r.terminal(w.To)
	if err != nil {
		return graph.TerminalRef{}, graph.TerminalRef{}, err
	}
	return from, to, nil
}

// terminal parses "service.port".
func (r *Replayer) terminal(s string) (graph.TerminalRef, error) {
	name, port, ok := strings.Cut(s, ".")
	if !ok || !validation.IsValidIdentifier(port) {
		return graph.TerminalRef{}, fmt.Errorf("terminal %q must be service.port", s)
	}
	id, err := r.node(name)
	if err != nil {
		return graph.TerminalRef{}, err
	}
	return graph.TerminalRef{NodeID: id, Port: port}, nil
}

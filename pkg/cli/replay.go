package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/domain/types"
	"github.com/dshills/flowedit/pkg/editor"
	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/metrics"
	"github.com/dshills/flowedit/pkg/storage"
)

// replayFlags holds flags for the replay command
type replayFlags struct {
	journal bool
	metrics bool
}

// NewReplayCommand creates the replay command
func NewReplayCommand(opts *Options) *cobra.Command {
	flags := &replayFlags{}

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a gesture script through the editor",
		Long: `Replay a YAML script of editor gestures (add, move, connect, set,
undo, redo, ...) headlessly and print the resulting canvas and history.

Example script:
  steps:
    - add: {module: form, as: intake, at: [10, 10]}
    - add: {module: transform, as: shape, at: [10, 40]}
    - connect: {from: intake.out, to: shape.in}
    - set: {node: shape, values: {expression: "input.total * 2"}}
    - undo: 1
    - expect: {node: shape, path: expression, equals: input}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, flags, args[0])
		},
	}

	cmd.Flags().BoolVar(&flags.journal, "journal", false, "Record stack events in the journal database")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Print command metrics after the replay")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *Options, flags *replayFlags, path string) error {
	script, err := LoadScript(path)
	if err != nil {
		return err
	}
	catalogPath, err := script.CatalogPath(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("invalid modules path: %w", err)
	}
	catalog, err := opts.catalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load module catalog: %w", err)
	}

	editorOpts := []editor.Option{
		editor.WithLogger(opts.Logger),
		editor.WithCapacity(opts.Settings.HistoryCapacity),
	}

	if flags.journal {
		dbPath, err := opts.Settings.JournalFile()
		if err != nil {
			return err
		}
		journal, err := storage.NewSQLiteJournal(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer func() { _ = journal.Close() }()
		editorOpts = append(editorOpts, editor.WithJournal(journal))
	}

	var registry *prometheus.Registry
	if flags.metrics || opts.Settings.MetricsEnabled {
		registry = prometheus.NewRegistry()
		collector, err := metrics.NewCollector(registry)
		if err != nil {
			return err
		}
		editorOpts = append(editorOpts, editor.WithObserver(collector))
	}

	e := editor.New(catalog, editorOpts...)
	defer e.Close()

	replayer := NewReplayer(e)
	runErr := replayer.Run(replayContext(cmd.Context()), script)

	out := cmd.OutOrStdout()
	printCanvas(out, e, replayer.Names())
	printHistory(out, e)
	if flags.journal {
		_, _ = fmt.Fprintf(out, "\nJournal session: %s\n", e.Session())
	}
	if registry != nil {
		if err := printMetrics(out, registry); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	opts.Logger.Debug("replay finished", "script", path, "steps", len(script.Steps))
	return nil
}

// printCanvas prints the nodes and wires of the editor's graph.
func printCanvas(w io.Writer, e *editor.Editor, names map[types.NodeID]string) {
	name := func(id types.NodeID) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id.String()
	}

	info, err := e.WorkflowInfo()
	if err == nil {
		_, _ = fmt.Fprintf(w, "Workflow: %s (v%s)\n", info.Name, info.Version)
		if info.Description != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", info.Description)
		}
		_, _ = fmt.Fprintln(w)
	}

	e.View(func(g *graph.Graph) {
		nodes := g.Nodes()
		_, _ = fmt.Fprintf(w, "Services (%d):\n", len(nodes))
		_, _ = fmt.Fprintf(w, "%-16s %-14s %-10s %s\n", "NAME", "MODULE", "POSITION", "PORTS")
		_, _ = fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, n := range nodes {
			ports := make([]string, 0, len(n.Terminals()))
			for _, t := range n.Terminals() {
				ports = append(ports, t.Name)
			}
			_, _ = fmt.Fprintf(w, "%-16s %-14s %-10s %s\n",
				name(n.ID), n.Module.Name, n.Position(), strings.Join(ports, ","))
		}

		wires := g.Wires()
		_, _ = fmt.Fprintf(w, "\nWires (%d):\n", len(wires))
		lines := make([]string, 0, len(wires))
		for _, wire := range wires {
			lines = append(lines, fmt.Sprintf("  %s.%s -> %s.%s",
				name(wire.From.NodeID), wire.From.Port, name(wire.To.NodeID), wire.To.Port))
		}
		sort.Strings(lines)
		for _, line := range lines {
			_, _ = fmt.Fprintln(w, line)
		}
	})
}

// printHistory prints the undo/redo timeline and what undo and redo would do
// next.
func printHistory(w io.Writer, e *editor.Editor) {
	history := e.History()
	_, _ = fmt.Fprintf(w, "\nHistory (%d, keeps %d):\n", len(history), e.Capacity())
	for i, entry := range history {
		marker := " "
		if entry.Undone {
			marker = "↶"
		}
		_, _ = fmt.Fprintf(w, "%3d %s %s\n", i+1, marker, entry.Description)
	}
	if desc, ok := e.NextUndo(); ok {
		_, _ = fmt.Fprintf(w, "Next undo: %s\n", desc)
	}
	if desc, ok := e.NextRedo(); ok {
		_, _ = fmt.Fprintf(w, "Next redo: %s\n", desc)
	}
}

// printMetrics prints every sample gathered from registry.
func printMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	_, _ = fmt.Fprintln(w, "\nMetrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			value := m.GetGauge().GetValue()
			if m.GetCounter() != nil {
				value = m.GetCounter().GetValue()
			}
			_, _ = fmt.Fprintf(w, "  %s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}

// replayContext returns ctx or a background context for commands run
// without one.
func replayContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowedit/pkg/config"
)

const sampleScript = `
steps:
  - add: {module: form, as: intake, at: [10, 10]}
  - add: {module: transform, as: shape, at: [10, 40]}
  - connect: {from: intake.out, to: shape.in}
  - set: {node: shape, values: {expression: "input.total * 2"}}
  - undo: 1
`

const sampleCatalog = `
modules:
  - name: source
    category: input
    outputs:
      - name: out
  - name: sink
    inputs:
      - name: in
    parameters:
      - name: target
        type: text
        default: stdout
`

// setupConfigDir points the CLI at a fresh config directory.
func setupConfigDir(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"HISTORY_CAPACITY", "LOG_LEVEL", "LOG_FORMAT", "JOURNAL_PATH", "CATALOG_PATH", "METRICS_ENABLED"} {
		t.Setenv(config.EnvPrefix+name, "")
	}
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "replay")
	assert.Contains(t, names, "modules")
	assert.Contains(t, names, "journal")
	assert.Equal(t, Version, cmd.Version)
}

func TestRootCommand_InvalidLogFormat(t *testing.T) {
	setupConfigDir(t)
	_, err := runCLI(t, "--log-format", "xml", "modules", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-format")
}

func TestReplayCommand(t *testing.T) {
	setupConfigDir(t)
	script := filepath.Join(t.TempDir(), "edit.yaml")
	writeFile(t, script, sampleScript)

	out, err := runCLI(t, "replay", script)
	require.NoError(t, err)

	assert.Contains(t, out, "Workflow: Untitled workflow (v1.0.0)")
	assert.Contains(t, out, "Services (2):")
	assert.Contains(t, out, "intake")
	assert.Contains(t, out, "Wires (1):")
	assert.Contains(t, out, "intake.out -> shape.in")
	assert.Contains(t, out, "History (4, keeps 100):")
	assert.Contains(t, out, "Next undo: connect ")
	assert.Contains(t, out, "Next redo: change [expression] on ")
	assert.Contains(t, out, "↶")
	assert.NotContains(t, out, "Metrics:")
}

func TestReplayCommand_FailingStep(t *testing.T) {
	setupConfigDir(t)
	script := filepath.Join(t.TempDir(), "edit.yaml")
	writeFile(t, script, "steps:\n  - add: {module: form, as: a, at: [0, 0]}\n  - move: {node: ghost, to: [1, 1]}\n")

	out, err := runCLI(t, "replay", script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2 (move)")
	// the canvas is still printed
	assert.Contains(t, out, "Services (1):")
}

func TestReplayCommand_ScriptCatalog(t *testing.T) {
	setupConfigDir(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "catalog.yaml"), sampleCatalog)
	script := filepath.Join(dir, "edit.yaml")
	writeFile(t, script, `
modules: catalog.yaml
steps:
  - add: {module: source, as: src, at: [0, 0]}
  - add: {module: sink, as: dst, at: [0, 30]}
  - connect: {from: src.out, to: dst.in}
`)

	out, err := runCLI(t, "replay", script)
	require.NoError(t, err)
	assert.Contains(t, out, "src.out -> dst.in")

	writeFile(t, script, "modules: ../catalog.yaml\nsteps:\n  - undo: 1\n")
	_, err = runCLI(t, "replay", script)
	assert.Error(t, err)
}

func TestReplayCommand_Metrics(t *testing.T) {
	setupConfigDir(t)
	script := filepath.Join(t.TempDir(), "edit.yaml")
	writeFile(t, script, sampleScript)

	out, err := runCLI(t, "replay", "--metrics", script)
	require.NoError(t, err)
	assert.Contains(t, out, "Metrics:")
	assert.Contains(t, out, "flowedit_commands_total")
	assert.Contains(t, out, "flowedit_undo_depth{} 3")
	assert.Contains(t, out, "flowedit_redo_depth{} 1")
}

func TestJournalCommands(t *testing.T) {
	setupConfigDir(t)

	out, err := runCLI(t, "journal", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded")

	script := filepath.Join(t.TempDir(), "edit.yaml")
	writeFile(t, script, sampleScript)
	out, err = runCLI(t, "replay", "--journal", script)
	require.NoError(t, err)
	require.Contains(t, out, "Journal session: ")

	session := strings.TrimSpace(out[strings.Index(out, "Journal session: ")+len("Journal session: "):])
	session = strings.Fields(session)[0]

	out, err = runCLI(t, "journal", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, session)

	out, err = runCLI(t, "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: "+session)
	assert.Contains(t, out, "Total: 5 events")
	assert.Contains(t, out, "undo")

	out, err = runCLI(t, "journal", "list", "--session", session, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 events")
}

func TestModulesCommands(t *testing.T) {
	setupConfigDir(t)

	tests := []struct {
		name     string
		args     func(dir string) []string
		want     []string
		wantErr  bool
		fixtures map[string]string
	}{
		{
			name: "list builtin",
			args: func(string) []string { return []string{"modules", "list"} },
			want: []string{"http_request", "merge", "in1..8", "Total: 5 modules"},
		},
		{
			name:     "list file",
			fixtures: map[string]string{"catalog.yaml": sampleCatalog},
			args: func(dir string) []string {
				return []string{"modules", "list", filepath.Join(dir, "catalog.yaml")}
			},
			want: []string{"source", "sink", "target", "Total: 2 modules"},
		},
		{
			name:     "validate ok",
			fixtures: map[string]string{"catalog.yaml": sampleCatalog},
			args: func(dir string) []string {
				return []string{"modules", "validate", filepath.Join(dir, "catalog.yaml")}
			},
			want: []string{"✓", "2 modules valid"},
		},
		{
			name:     "validate bad",
			fixtures: map[string]string{"bad.yaml": "modules:\n  - name: a\n  - name: a\n"},
			args: func(dir string) []string {
				return []string{"modules", "validate", filepath.Join(dir, "bad.yaml")}
			},
			want:    []string{"✗"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupConfigDir(t)
			dir := t.TempDir()
			for name, content := range tt.fixtures {
				writeFile(t, filepath.Join(dir, name), content)
			}

			out, err := runCLI(t, tt.args(dir)...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestModulesList_ConfiguredCatalog(t *testing.T) {
	dir := setupConfigDir(t)
	writeFile(t, filepath.Join(dir, "catalog.yaml"), sampleCatalog)
	t.Setenv(config.EnvPrefix+"CATALOG_PATH", "catalog.yaml")

	out, err := runCLI(t, "modules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 modules")
}

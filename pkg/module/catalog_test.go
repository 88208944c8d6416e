package module

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `
modules:
  - name: fetch
    category: service
    inputs:
      - name: in
    outputs:
      - name: out
        wire:
          color: "#00ff00"
          width: 3
    parameters:
      - name: url
        type: template
        required: true
        default: "http://${host}/api"
      - name: timeout
        type: number
        default: 30
    schema:
      type: object
      properties:
        timeout:
          type: integer
          minimum: 1
  - name: fan_in
    outputs:
      - name: out
    dynamic_ports:
      prefix: in
      min: 2
      max: 4
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(testCatalogYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"fan_in", "fetch"}, c.Names())
	assert.Equal(t, 2, c.Len())

	fetch, err := c.Lookup("fetch")
	require.NoError(t, err)
	assert.Equal(t, WireConfig{Color: "#00ff00", Width: 3}, fetch.Outputs[0].Wire)
	assert.Equal(t, DefaultWireConfig, fetch.Inputs[0].WireOrDefault())

	f, err := fetch.NewForm()
	require.NoError(t, err)
	assert.Equal(t, 30, f.GetValue()["timeout"])

	fanIn, err := c.Lookup("fan_in")
	require.NoError(t, err)
	require.NotNil(t, fanIn.DynamicPorts)
	assert.Equal(t, "in3", fanIn.DynamicPorts.PortName(3))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"malformed", "modules: [::"},
		{"bad name", "modules:\n  - name: \"bad name\"\n"},
		{"duplicate module", "modules:\n  - name: a\n  - name: a\n"},
		{"duplicate port", "modules:\n  - name: a\n    inputs: [{name: x}]\n    outputs: [{name: x}]\n"},
		{"bad bounds", "modules:\n  - name: a\n    dynamic_ports: {prefix: in, min: 3, max: 1}\n"},
		{"port collision", "modules:\n  - name: a\n    inputs: [{name: in1}]\n    dynamic_ports: {prefix: in, min: 1, max: 2}\n"},
		{"duplicate field", "modules:\n  - name: a\n    parameters: [{name: x, type: text}, {name: x, type: text}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Builtin().Lookup("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownModule))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	c := Builtin()
	require.NoError(t, c.Validate())

	for _, name := range []string{"form", "http_request", "transform", "condition", "merge"} {
		d, err := c.Lookup(name)
		require.NoError(t, err, name)
		_, err = d.NewForm()
		assert.NoError(t, err, name)
	}

	merge, _ := c.Lookup("merge")
	require.NotNil(t, merge.DynamicPorts)
	assert.Equal(t, 1, merge.DynamicPorts.Min)
}

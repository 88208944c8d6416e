package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_IsDeepCopy(t *testing.T) {
	headers := map[string]any{"accept": "json"}
	src := map[string]any{"url": "http://x", "headers": headers}

	snap := Capture(src)
	headers["accept"] = "xml"
	src["url"] = "changed"

	assert.Equal(t, "http://x", snap["url"])
	assert.Equal(t, "json", snap["headers"].(map[string]any)["accept"])
}

func TestCapture_Nil(t *testing.T) {
	snap := Capture(nil)
	require.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestSnapshot_Lookup(t *testing.T) {
	snap := Snapshot{
		"headers": map[string]any{"accept": "json"},
		"targets": []any{"a", "b"},
		"retries": 3,
	}

	v, ok := snap.Lookup("headers.accept")
	require.True(t, ok)
	assert.Equal(t, "json", v)

	v, ok = snap.Lookup("targets.1")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = snap.Lookup("retries")
	require.True(t, ok)
	assert.Equal(t, float64(3), v)

	_, ok = snap.Lookup("missing.key")
	assert.False(t, ok)
}

func TestSnapshot_EqualAndDiff(t *testing.T) {
	a := Snapshot{"x": 1, "y": "same"}
	b := Snapshot{"x": 2, "y": "same", "z": true}

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a.Clone()))
	assert.True(t, Snapshot(nil).Equal(Snapshot{}))
	assert.Equal(t, []string{"x", "z"}, a.Diff(b))
	assert.Empty(t, a.Diff(a))
}

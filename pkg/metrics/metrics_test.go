package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowedit/pkg/command"
	"github.com/dshills/flowedit/pkg/graph"
	"github.com/dshills/flowedit/pkg/module"
)

func TestCollector_CountsStackEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	g := graph.New()
	s := command.NewStack(0, command.WithObserver(c))
	d, err := module.Builtin().Lookup("transform")
	require.NoError(t, err)

	add := command.NewAddService(g, s, d, graph.NewPosition(0, 0))
	require.NoError(t, s.Push(add))
	require.NoError(t, s.Undo())
	require.NoError(t, s.Redo())
	require.NoError(t, s.Push(command.NewRemoveService(g, s, add.Container())))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("push", command.LabelAddService)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("undo", command.LabelAddService)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("redo", command.LabelAddService)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commands.WithLabelValues("push", command.LabelRemoveService)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.invalidated.WithLabelValues(command.LabelAddService)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.undoDepth))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.redoDepth))
}

func TestCollector_CountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Observe(command.Event{Action: command.ActionUndo, Err: errors.New("stale"), UndoDepth: 3})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("undo")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.undoDepth))
	assert.Equal(t, 0, testutil.CollectAndCount(c.commands))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

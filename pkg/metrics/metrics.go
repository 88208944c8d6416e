// Package metrics exposes command stack activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/flowedit/pkg/command"
)

// Collector counts stack events and tracks history depth. It implements
// command.Observer.
type Collector struct {
	commands    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	invalidated *prometheus.CounterVec
	undoDepth   prometheus.Gauge
	redoDepth   prometheus.Gauge
}

var _ command.Observer = (*Collector)(nil)

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowedit_commands_total",
				Help: "Total number of successful command stack operations",
			},
			[]string{"action", "label"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowedit_command_failures_total",
				Help: "Total number of failed command stack operations",
			},
			[]string{"action"},
		),
		invalidated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowedit_invalidated_commands_total",
				Help: "Total number of commands removed from history by cross-invalidation",
			},
			[]string{"label"},
		),
		undoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowedit_undo_depth",
			Help: "Number of commands that can be undone",
		}),
		redoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowedit_redo_depth",
			Help: "Number of commands that can be redone",
		}),
	}

	for _, m := range []prometheus.Collector{c.commands, c.failures, c.invalidated, c.undoDepth, c.redoDepth} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe records e.
func (c *Collector) Observe(e command.Event) {
	label := ""
	if e.Command != nil {
		label = e.Command.Label()
	}

	switch {
	case e.Err != nil:
		c.failures.WithLabelValues(string(e.Action)).Inc()
	case e.Action == command.ActionInvalidate:
		c.invalidated.WithLabelValues(label).Inc()
	default:
		c.commands.WithLabelValues(string(e.Action), label).Inc()
	}

	c.undoDepth.Set(float64(e.UndoDepth))
	c.redoDepth.Set(float64(e.RedoDepth))
}

// Package module describes the service container types that can be placed
// on the canvas, and loads catalogs of them from YAML.
package module

import (
	"errors"
	"fmt"

	"github.com/dshills/flowedit/pkg/form"
	"github.com/dshills/flowedit/pkg/validation"
)

// WireConfig is the rendering configuration carried by a terminal and copied
// onto wires drawn from it.
type WireConfig struct {
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
	Width int    `yaml:"width,omitempty" json:"width,omitempty"`
	Style string `yaml:"style,omitempty" json:"style,omitempty"`
}

// DefaultWireConfig is used by ports that do not set their own.
var DefaultWireConfig = WireConfig{Color: "#4a90d9", Width: 2, Style: "bezier"}

// PortSpec declares a fixed terminal.
type PortSpec struct {
	Name string     `yaml:"name" json:"name"`
	Wire WireConfig `yaml:"wire,omitempty" json:"wire,omitempty"`
}

// DynamicPorts declares a family of input terminals the user can add and
// remove at edit time (multi-port services). Ports are named Prefix1..PrefixN.
type DynamicPorts struct {
	Prefix string     `yaml:"prefix" json:"prefix"`
	Min    int        `yaml:"min" json:"min"`
	Max    int        `yaml:"max" json:"max"`
	Wire   WireConfig `yaml:"wire,omitempty" json:"wire,omitempty"`
}

// PortName returns the name of the i-th dynamic port (1-based).
func (d *DynamicPorts) PortName(i int) string {
	return fmt.Sprintf("%s%d", d.Prefix, i)
}

// Descriptor is the definition a service container is instantiated from.
type Descriptor struct {
	Name         string         `yaml:"name" json:"name"`
	Category     string         `yaml:"category,omitempty" json:"category,omitempty"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Inputs       []PortSpec     `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs      []PortSpec     `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Parameters   []form.Field   `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Schema       map[string]any `yaml:"schema,omitempty" json:"schema,omitempty"`
	DynamicPorts *DynamicPorts  `yaml:"dynamic_ports,omitempty" json:"dynamic_ports,omitempty"`
}

// Validate checks the descriptor's own invariants.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.New("descriptor cannot be nil")
	}
	if err := validation.ValidateIdentifier(d.Name); err != nil {
		return fmt.Errorf("module name: %w", err)
	}

	ports := make(map[string]bool)
	for _, group := range [][]PortSpec{d.Inputs, d.Outputs} {
		for _, p := range group {
			if err := validation.ValidateIdentifier(p.Name); err != nil {
				return fmt.Errorf("module %s: port name: %w", d.Name, err)
			}
			if ports[p.Name] {
				return fmt.Errorf("module %s: duplicate port %s", d.Name, p.Name)
			}
			ports[p.Name] = true
		}
	}

	if dp := d.DynamicPorts; dp != nil {
		if err := validation.ValidateIdentifier(dp.Prefix); err != nil {
			return fmt.Errorf("module %s: dynamic port prefix: %w", d.Name, err)
		}
		if dp.Min < 0 || dp.Max < dp.Min || dp.Max == 0 {
			return fmt.Errorf("module %s: invalid dynamic port bounds %d..%d", d.Name, dp.Min, dp.Max)
		}
		for i := 1; i <= dp.Max; i++ {
			if ports[dp.PortName(i)] {
				return fmt.Errorf("module %s: dynamic port %s collides with a fixed port", d.Name, dp.PortName(i))
			}
		}
	}

	if _, err := d.NewForm(); err != nil {
		return fmt.Errorf("module %s: %w", d.Name, err)
	}
	return nil
}

// NewForm builds a fresh parameter form for one instance of the module.
func (d *Descriptor) NewForm() (*form.Form, error) {
	return form.New(d.Name, d.Parameters, form.WithSchema(d.Schema))
}

// WireOrDefault returns the port's wire configuration, falling back to the
// default when none is set.
func (p PortSpec) WireOrDefault() WireConfig {
	if p.Wire == (WireConfig{}) {
		return DefaultWireConfig
	}
	return p.Wire
}

// WireOrDefault returns the dynamic ports' wire configuration, falling back
// to the default when none is set.
func (d *DynamicPorts) WireOrDefault() WireConfig {
	if d.Wire == (WireConfig{}) {
		return DefaultWireConfig
	}
	return d.Wire
}

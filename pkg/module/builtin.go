package module

import "github.com/dshills/flowedit/pkg/form"

// builtinDescriptors is the palette available without a catalog file.
func builtinDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "form",
			Category:    "input",
			Description: "Collect values from a user form",
			Outputs:     []PortSpec{{Name: "out"}},
			Parameters: []form.Field{
				{Name: "title", Label: "Title", Type: form.FieldText, Required: true, Default: "Untitled form"},
				{Name: "fields", Label: "Field count", Type: form.FieldNumber, Default: 1},
				{Name: "show_when", Label: "Show when", Type: form.FieldCondition},
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"fields": map[string]any{"type": "integer", "minimum": 0, "maximum": 50},
				},
			},
		},
		{
			Name:        "http_request",
			Category:    "service",
			Description: "Call an HTTP endpoint",
			Inputs:      []PortSpec{{Name: "in"}},
			Outputs:     []PortSpec{{Name: "out"}, {Name: "error", Wire: WireConfig{Color: "#d0021b", Width: 2, Style: "bezier"}}},
			Parameters: []form.Field{
				{Name: "url", Label: "URL", Type: form.FieldTemplate, Required: true, Default: "http://localhost"},
				{Name: "method", Label: "Method", Type: form.FieldText, Default: "GET"},
				{Name: "retries", Label: "Retries", Type: form.FieldNumber, Default: 0},
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"method":  map[string]any{"enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"}},
					"retries": map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
				},
			},
		},
		{
			Name:        "transform",
			Category:    "service",
			Description: "Transform data with an expression",
			Inputs:      []PortSpec{{Name: "in"}},
			Outputs:     []PortSpec{{Name: "out"}},
			Parameters: []form.Field{
				{Name: "expression", Label: "Expression", Type: form.FieldExpression, Required: true, Default: "input"},
			},
		},
		{
			Name:        "condition",
			Category:    "control",
			Description: "Conditional branching",
			Inputs:      []PortSpec{{Name: "in"}},
			Outputs:     []PortSpec{{Name: "true"}, {Name: "false"}},
			Parameters: []form.Field{
				{Name: "condition", Label: "Condition", Type: form.FieldCondition, Required: true, Default: "true"},
			},
		},
		{
			Name:        "merge",
			Category:    "control",
			Description: "Merge several inputs into one output",
			Outputs:     []PortSpec{{Name: "out"}},
			Parameters: []form.Field{
				{Name: "strategy", Label: "Strategy", Type: form.FieldText, Default: "wait_all"},
			},
			DynamicPorts: &DynamicPorts{Prefix: "in", Min: 1, Max: 8},
		},
	}
}

// Builtin returns the catalog of built-in modules.
func Builtin() *Catalog {
	c, err := NewCatalog(builtinDescriptors()...)
	if err != nil {
		panic("module: invalid builtin catalog: " + err.Error())
	}
	return c
}

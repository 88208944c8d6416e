package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrValidation is returned (wrapped) when a value is rejected by a form.
var ErrValidation = errors.New("form validation failed")

// ChangeFunc is called after a notifying SetValue with the previous and new value.
type ChangeFunc func(old, new Snapshot)

// Form is an ordered set of fields with a current value.
type Form struct {
	name      string
	fields    []Field
	schema    *gojsonschema.Schema
	value     Snapshot
	listeners map[int]ChangeFunc
	nextID    int
}

// Option configures a Form.
type Option func(*Form) error

// WithSchema validates every value against a JSON schema in addition to the
// per-field checks.
func WithSchema(schema map[string]any) Option {
	return func(f *Form) error {
		if len(schema) == 0 {
			return nil
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			return fmt.Errorf("invalid form schema: %w", err)
		}
		f.schema = compiled
		return nil
	}
}

// New creates a form whose initial value holds each field's default.
func New(name string, fields []Field, opts ...Option) (*Form, error) {
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if field.Name == "" {
			return nil, errors.New("form field name cannot be empty")
		}
		if seen[field.Name] {
			return nil, fmt.Errorf("duplicate form field: %s", field.Name)
		}
		seen[field.Name] = true
	}

	f := &Form{
		name:      name,
		fields:    append([]Field(nil), fields...),
		listeners: make(map[int]ChangeFunc),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	initial := make(map[string]any)
	for _, field := range fields {
		if field.Default != nil {
			initial[field.Name] = field.Default
		}
	}
	f.value = Capture(initial)
	return f, nil
}

// Name returns the form name.
func (f *Form) Name() string {
	return f.name
}

// Fields returns a copy of the form's fields.
func (f *Form) Fields() []Field {
	return append([]Field(nil), f.fields...)
}

// GetValue returns a copy of the current value.
func (f *Form) GetValue() Snapshot {
	return f.value.Clone()
}

// SetValue validates and stores value. Listeners are called only when notify
// is true and the value actually changed.
func (f *Form) SetValue(value Snapshot, notify bool) error {
	if err := f.Validate(value); err != nil {
		return err
	}

	old := f.value
	f.value = value.Clone()

	if notify && !old.Equal(f.value) {
		for _, id := range f.listenerIDs() {
			if fn, ok := f.listeners[id]; ok {
				fn(old.Clone(), f.value.Clone())
			}
		}
	}
	return nil
}

// SetField replaces a single key of the current value.
func (f *Form) SetField(name string, value any, notify bool) error {
	next := f.GetValue()
	next[name] = value
	return f.SetValue(next, notify)
}

// OnChange registers a listener and returns a function that removes it.
func (f *Form) OnChange(fn ChangeFunc) (remove func()) {
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() { delete(f.listeners, id) }
}

// Validate checks value against the fields and the optional schema without
// storing it.
func (f *Form) Validate(value Snapshot) error {
	var problems []string

	known := make(map[string]Field, len(f.fields))
	for _, field := range f.fields {
		known[field.Name] = field
	}
	for key := range value {
		if _, ok := known[key]; !ok {
			problems = append(problems, fmt.Sprintf("unknown field %s", key))
		}
	}

	for _, field := range f.fields {
		v, ok := value[field.Name]
		if !ok || v == nil || v == "" {
			if field.Required {
				problems = append(problems, fmt.Sprintf("%s is required", field.Name))
			}
			continue
		}
		if err := field.Validate(v); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", field.Name, err))
		}
	}

	if f.schema != nil && len(problems) == 0 {
		result, err := f.schema.Validate(gojsonschema.NewGoLoader(map[string]any(value)))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrValidation, f.name, err)
		}
		for _, desc := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrValidation, f.name, strings.Join(problems, "; "))
	}
	return nil
}

// listenerIDs returns registration order so listeners fire deterministically.
func (f *Form) listenerIDs() []int {
	ids := make([]int, 0, len(f.listeners))
	for id := 0; id < f.nextID; id++ {
		if _, ok := f.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

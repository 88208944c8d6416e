package module

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownModule is returned when a catalog has no descriptor for a name.
var ErrUnknownModule = errors.New("unknown module")

// Catalog is the palette of module descriptors available to an editor.
type Catalog struct {
	modules map[string]*Descriptor
}

// catalogFile is the YAML layout of a catalog file.
type catalogFile struct {
	Modules []*Descriptor `yaml:"modules"`
}

// NewCatalog builds a catalog from descriptors and validates it.
func NewCatalog(descriptors ...*Descriptor) (*Catalog, error) {
	c := &Catalog{modules: make(map[string]*Descriptor, len(descriptors))}
	var problems []string
	for _, d := range descriptors {
		if d == nil {
			problems = append(problems, "nil descriptor")
			continue
		}
		if _, exists := c.modules[d.Name]; exists {
			problems = append(problems, fmt.Sprintf("duplicate module: %s", d.Name))
			continue
		}
		c.modules[d.Name] = d
	}
	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	if len(data) == 0 {
		return nil, errors.New("empty catalog")
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return NewCatalog(file.Modules...)
}

// LoadFile reads and parses a YAML catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Lookup returns the descriptor registered under name.
func (c *Catalog) Lookup(name string) (*Descriptor, error) {
	d, ok := c.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	return d, nil
}

// Names returns the registered module names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.modules)
}

// Validate checks every descriptor and reports all problems at once.
func (c *Catalog) Validate() error {
	var problems []string
	for _, name := range c.Names() {
		if err := c.modules[name].Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

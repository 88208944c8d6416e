package form

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

// FieldType selects the validation applied to a field's value.
type FieldType string

const (
	FieldText       FieldType = "text"
	FieldNumber     FieldType = "number"
	FieldBool       FieldType = "bool"
	FieldExpression FieldType = "expression"
	FieldCondition  FieldType = "condition"
	FieldTemplate   FieldType = "template"
)

// maxTextLength is the longest text value a field accepts.
const maxTextLength = 256

var templateVarName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*|\[\d+\])*$`)

// Field describes one editable form entry.
type Field struct {
	Name     string    `yaml:"name" json:"name"`
	Label    string    `yaml:"label,omitempty" json:"label,omitempty"`
	Type     FieldType `yaml:"type" json:"type"`
	Required bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Default  any       `yaml:"default,omitempty" json:"default,omitempty"`
}

// HelpText returns a syntax hint for the field's type.
func (f Field) HelpText() string {
	switch f.Type {
	case FieldNumber:
		return "Number: e.g., 3, 2.5"
	case FieldBool:
		return "Boolean: true or false"
	case FieldExpression:
		return "Expression: e.g., total + 1, user.age * 2"
	case FieldCondition:
		return "Boolean: e.g., total > 10 && status == \"active\""
	case FieldTemplate:
		return "Template: e.g., \"Hello ${user.name}\""
	default:
		return "Enter text value"
	}
}

// Validate checks a single value against the field's type.
// Required-ness is checked by the form, which knows whether the key is present.
func (f Field) Validate(value any) error {
	switch f.Type {
	case FieldNumber:
		return validateNumberField(value)
	case FieldBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}

	switch f.Type {
	case FieldExpression:
		return validateExpressionField(s)
	case FieldCondition:
		return validateConditionField(s)
	case FieldTemplate:
		return validateTemplateField(s)
	default:
		return validateTextField(s)
	}
}

func validateNumberField(value any) error {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return nil
	default:
		return fmt.Errorf("expected number, got %T", value)
	}
}

// validateTextField checks max length
func validateTextField(value string) error {
	if len(value) > maxTextLength {
		return fmt.Errorf("text exceeds maximum length of %d characters", maxTextLength)
	}
	return nil
}

// validateExpressionField parses the expression with expr-lang/expr.
// Unknown variables are allowed since values only exist at run time.
func validateExpressionField(value string) error {
	if value == "" {
		return nil
	}

	for _, pattern := range []string{"os.", "exec.", "http.", "net.", "syscall.", "unsafe."} {
		if strings.Contains(value, pattern) {
			return fmt.Errorf("unsafe operation not allowed: %s", pattern)
		}
	}

	if _, err := expr.Compile(value, expr.AllowUndefinedVariables()); err != nil {
		return fmt.Errorf("invalid expression syntax: %w", err)
	}
	return nil
}

// validateConditionField requires an expression that yields a boolean
func validateConditionField(value string) error {
	if value == "" {
		return nil
	}
	if err := validateExpressionField(value); err != nil {
		return err
	}
	if _, err := expr.Compile(value, expr.AllowUndefinedVariables(), expr.AsBool()); err != nil {
		return fmt.Errorf("condition must be a boolean expression: %w", err)
	}
	return nil
}

// validateTemplateField checks ${} placeholder syntax
func validateTemplateField(value string) error {
	if value == "" {
		return nil
	}

	depth := 0
	for i := 0; i < len(value); i++ {
		switch {
		case i < len(value)-1 && value[i] == '$' && value[i+1] == '{':
			depth++
			i++
		case value[i] == '}' && depth > 0:
			depth--
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced braces in template string")
	}

	for i := 0; i < len(value); i++ {
		if value[i] != '$' || i+1 >= len(value) || value[i+1] != '{' {
			continue
		}
		end := strings.IndexByte(value[i:], '}')
		name := value[i+2 : i+end]
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("empty placeholder in template")
		}
		if !templateVarName.MatchString(name) {
			return fmt.Errorf("invalid variable name in template: %s", name)
		}
		i += end
	}
	return nil
}

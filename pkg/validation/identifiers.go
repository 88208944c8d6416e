package validation

import "fmt"

// maxIdentifierLen bounds identifiers shown in palette and history listings.
const maxIdentifierLen = 64

// IsValidIdentifierChar checks if a character is valid for identifiers
// (alphanumeric, hyphen, or underscore).
func IsValidIdentifierChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_'
}

// IsValidIdentifier reports whether s is a non-empty identifier made only of
// identifier characters.
func IsValidIdentifier(s string) bool {
	return ValidateIdentifier(s) == nil
}

// ValidateIdentifier returns a descriptive error when s is not a valid identifier.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(s) > maxIdentifierLen {
		return fmt.Errorf("identifier %q exceeds maximum length of %d", s, maxIdentifierLen)
	}
	for _, ch := range s {
		if !IsValidIdentifierChar(ch) {
			return fmt.Errorf("identifier %q contains invalid character %q", s, ch)
		}
	}
	return nil
}

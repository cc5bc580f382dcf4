package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// classNameRegex matches Java binary class names as they appear in heap
// snapshots: dotted packages, '$' for nested classes and trailing "[]" pairs
// for array classes.
var classNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*(\[\])*$`)

// ValidateClassName validates a class name given on the command line or in
// an exclusion file.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - Maximum length of 1024 characters
//   - Must look like a binary class name (com.example.Foo$Bar)
func ValidateClassName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "class name cannot be empty")
	}

	if len(name) > 1024 {
		return New(ErrCodeInvalidInput, "class name too long (max 1024 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "class name contains invalid characters: %q", name)
		}
	}

	if !classNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid class name: %q", name)
	}

	return nil
}

// ValidateFieldName validates a field name used in an exclusion rule.
func ValidateFieldName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "field name cannot be empty")
	}
	if strings.ContainsAny(name, ". \t\n") {
		return New(ErrCodeInvalidInput, "invalid field name: %q", name)
	}
	return nil
}

// ValidateThreadName validates a thread name used in an exclusion rule.
// Thread names may contain spaces but no control characters.
func ValidateThreadName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "thread name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "thread name contains invalid control characters")
		}
	}
	return nil
}

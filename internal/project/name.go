package project

import (
	"fmt"
	"strings"
	"unicode"
)

// invalidNameChars cannot appear in a scene name.
const invalidNameChars = `\/:*?"<>|`

// NameError reports why a scene name was rejected.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("scene name %q is invalid: %s", e.Name, e.Reason)
}

// ValidateName checks a scene name: non-empty, starting with a letter,
// without path separators or control characters.
func ValidateName(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "scene name is required"}
	}
	first := []rune(name)[0]
	if !unicode.IsLetter(first) {
		return &NameError{Name: name, Reason: "scene name should start with letter"}
	}
	if strings.ContainsAny(name, invalidNameChars) || strings.ContainsFunc(name, unicode.IsControl) {
		return &NameError{Name: name, Reason: "scene name contains invalid characters"}
	}
	if strings.TrimSpace(name) != name {
		return &NameError{Name: name, Reason: "scene name has leading or trailing spaces"}
	}
	return nil
}

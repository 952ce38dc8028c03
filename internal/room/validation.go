package room

import (
	"fmt"
	"strings"
)

// NormalizeName trims surrounding whitespace.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateName checks a normalised room name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: required", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, MaxNameLength)
	}
	return nil
}

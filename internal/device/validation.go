package device

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NormalizeName trims surrounding whitespace. Names are case-sensitive.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateName checks a normalised device name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: required", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, MaxNameLength)
	}
	return nil
}

// ValidateType checks t is a known device type.
func ValidateType(t Type) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q is not one of AC/Heater, Lights, Fan", ErrInvalidType, t)
	}
	return nil
}

// requireType fails unless d is of type want.
func requireType(d *Device, want Type, attr string) error {
	if d.Type != want {
		return fmt.Errorf("%w: %s applies to %s devices, not %s", ErrInvalidType, attr, want, d.Type)
	}
	return nil
}

func checkRange(attr string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrOutOfRange, attr, lo, hi, v)
	}
	return nil
}

// NormalizeColor trims c and checks it is a single token of printable
// characters no longer than MaxColorLength.
func NormalizeColor(c string) (string, error) {
	c = strings.TrimSpace(c)
	if c == "" {
		return "", fmt.Errorf("%w: required", ErrInvalidColor)
	}
	if len(c) > MaxColorLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidColor, MaxColorLength)
	}
	for _, r := range c {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", fmt.Errorf("%w: %q is not a single token", ErrInvalidColor, c)
		}
	}
	return c, nil
}

// GenerateID returns a new surrogate device id (dev- followed by a UUID).
func GenerateID() string {
	return "dev-" + uuid.NewString()
}

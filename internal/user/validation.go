package user

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: required", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, MaxNameLength)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %q is not a valid address", ErrInvalidEmail, email)
	}
	return nil
}

// validatePhoto checks an opaque photo reference (a stored path or URL).
// Empty is allowed and means no photo.
func validatePhoto(photo string) error {
	if len(photo) > MaxPhotoLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidPhoto, MaxPhotoLength)
	}
	for _, r := range photo {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control characters", ErrInvalidPhoto)
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooWeak
	}
	return nil
}

func validateRole(r tenancy.Role) error {
	if !r.IsValid() {
		return fmt.Errorf("%w: %q is not admin or user", ErrInvalidRole, r)
	}
	return nil
}

// GenerateID returns a new user id (usr- followed by a UUID).
func GenerateID() string {
	return "usr-" + uuid.NewString()
}

// NormalizeName trims surrounding whitespace.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

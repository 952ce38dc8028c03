package user

import (
	"errors"
	"fmt"

	"github.com/nerrad567/homepanel-core/internal/fault"
)

var (
	// ErrUserNotFound is returned when a user ID or email does not exist.
	ErrUserNotFound = fmt.Errorf("user: %w", fault.ErrNotFound)

	// ErrEmailExists is returned when the email is already registered.
	ErrEmailExists = fmt.Errorf("user: %w: email already registered", fault.ErrConflict)

	// ErrAdminExists is returned when a house already has its admin.
	ErrAdminExists = fmt.Errorf("user: %w: house already has an admin", fault.ErrConflict)

	ErrInvalidName     = fmt.Errorf("user: %w: name", fault.ErrInvalidInput)
	ErrInvalidEmail    = fmt.Errorf("user: %w: email", fault.ErrInvalidInput)
	ErrInvalidHouse    = fmt.Errorf("user: %w: house name", fault.ErrInvalidInput)
	ErrInvalidRole     = fmt.Errorf("user: %w: role", fault.ErrInvalidInput)
	ErrInvalidPhoto    = fmt.Errorf("user: %w: photo", fault.ErrInvalidInput)
	ErrPasswordTooWeak = fmt.Errorf("user: %w: password must be at least %d characters", fault.ErrInvalidInput, MinPasswordLength)

	// ErrSelfRoleChange is returned when the admin changes their own role.
	ErrSelfRoleChange = fmt.Errorf("user: %w: cannot change own role", fault.ErrForbidden)

	// ErrNotOwnPhoto is returned when a member changes another account's photo.
	ErrNotOwnPhoto = fmt.Errorf("user: %w: you can only update your own photo", fault.ErrUnauthorized)

	// ErrAdminUndeletable is returned when deleting the house admin.
	ErrAdminUndeletable = fmt.Errorf("user: %w: the house admin cannot be deleted", fault.ErrForbidden)

	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// email or a wrong password. It carries no fault kind.
	ErrInvalidCredentials = errors.New("user: invalid credentials")
)

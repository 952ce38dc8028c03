package device

import (
	"fmt"

	"github.com/nerrad567/homepanel-core/internal/fault"
)

// Domain errors for the device package. Each wraps a fault kind:
//
//	if errors.Is(err, fault.ErrNotFound) {
//	    // any package's not-found
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = fmt.Errorf("device: %w", fault.ErrNotFound)

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = fmt.Errorf("device: %w: name", fault.ErrInvalidInput)

	// ErrInvalidLocation is returned when a location is empty.
	ErrInvalidLocation = fmt.Errorf("device: %w: location", fault.ErrInvalidInput)

	// ErrInvalidType is returned for an unknown type, or when an attribute
	// setter targets a device of the wrong type.
	ErrInvalidType = fmt.Errorf("device: %w: type", fault.ErrInvalidInput)

	// ErrOutOfRange is returned when a numeric attribute is outside its bounds.
	ErrOutOfRange = fmt.Errorf("device: %w: value out of range", fault.ErrInvalidInput)

	// ErrInvalidColor is returned when a colour is empty or malformed.
	ErrInvalidColor = fmt.Errorf("device: %w: color", fault.ErrInvalidInput)

	// ErrNotApproved is returned when toggling a device that awaits approval.
	ErrNotApproved = fmt.Errorf("device: %w", fault.ErrNotApproved)

	// ErrVersionConflict is returned when a concurrent write won the
	// compare-and-swap and retries were exhausted.
	ErrVersionConflict = fmt.Errorf("device: %w: concurrent update", fault.ErrConflict)

	// ErrIDAllocation is returned when no free deviceId could be found.
	ErrIDAllocation = fmt.Errorf("device: %w: could not allocate device id", fault.ErrConflict)
)

// DuplicateNameError reports that the house already has a device with the
// requested name. It is of the Conflict kind.
type DuplicateNameError struct {
	Existing Snapshot
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("device: %v: name %q already used by %s", fault.ErrConflict, e.Existing.Name, e.Existing.ID)
}

// Unwrap lets errors.Is(err, fault.ErrConflict) match.
func (e *DuplicateNameError) Unwrap() error {
	return fault.ErrConflict
}

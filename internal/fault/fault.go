// Package fault defines the error kinds shared by every Homepanel component.
//
// Package-level sentinels wrap one of these kinds so callers can branch on
// the kind with errors.Is without knowing which package produced the error:
//
//	var ErrDeviceNotFound = fmt.Errorf("device: %w", fault.ErrNotFound)
//
//	if errors.Is(err, fault.ErrNotFound) {
//	    // 404
//	}
package fault

import "errors"

var (
	// ErrNotFound means the referenced entity id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the entity belongs to a different house.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized means the caller's role or authorisation state is
	// insufficient for the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput covers missing or malformed fields, wrong device type
	// for an attribute, and out-of-range values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotApproved means the device has not been approved for control.
	ErrNotApproved = errors.New("not approved")

	// ErrConflict covers uniqueness violations and exhausted retries.
	ErrConflict = errors.New("conflict")
)

// Kind returns the taxonomy sentinel err belongs to, or nil if err carries
// none of them.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrForbidden, ErrUnauthorized, ErrInvalidInput, ErrNotApproved, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

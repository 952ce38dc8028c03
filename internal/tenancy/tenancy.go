// Package tenancy enforces the house boundary between Homepanel households.
//
// Every house-scoped read or mutation resolves its target entity first and
// then calls CheckHouse with the entity's house name. Ids are not
// house-partitioned, so an id alone never grants access.
//
// Role checks (RequireAdmin) are orthogonal to the house check and are
// applied after it for entity-bound operations, so a cross-house request
// always reports Forbidden regardless of the caller's role.
package tenancy

import (
	"context"
	"fmt"

	"github.com/nerrad567/homepanel-core/internal/fault"
)

// Role is the caller's privilege tier within a house.
type Role string

const (
	// RoleAdmin is the single Family Head of a house.
	RoleAdmin Role = "admin"

	// RoleUser is a household member.
	RoleUser Role = "user"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Principal is the resolved identity of the caller.
type Principal struct {
	UserID      string `json:"userId"`
	Role        Role   `json:"role"`
	HouseName   string `json:"houseName"`
	Authorized  bool   `json:"authorized"`
	DisplayName string `json:"displayName"`
}

// IsAdmin reports whether the principal is the house admin.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Errors returned by the guard. Both wrap a fault kind.
var (
	ErrCrossHouse = fmt.Errorf("tenancy: %w: entity belongs to another house", fault.ErrForbidden)
	ErrNotAdmin   = fmt.Errorf("tenancy: %w: admin role required", fault.ErrUnauthorized)
	ErrNotMember  = fmt.Errorf("tenancy: %w: member not authorised by admin", fault.ErrUnauthorized)
)

// CheckHouse fails with ErrCrossHouse unless the principal belongs to house.
func CheckHouse(p *Principal, house string) error {
	if p == nil || p.HouseName == "" || p.HouseName != house {
		return ErrCrossHouse
	}
	return nil
}

// RequireAdmin fails with ErrNotAdmin unless the principal is the house admin.
func RequireAdmin(p *Principal) error {
	if !p.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// RequireAuthorized fails with ErrNotMember when a member has not yet been
// authorised. Admins always pass.
func RequireAuthorized(p *Principal) error {
	if p == nil {
		return ErrNotMember
	}
	if p.IsAdmin() || p.Authorized {
		return nil
	}
	return ErrNotMember
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal) //nolint:errcheck // nil on miss
	return p
}

package user

import (
	"time"

	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

// Limits for account fields.
const (
	MaxNameLength     = 100
	MinPasswordLength = 6
	MaxPhotoLength    = 1024
)

// ResetStatus tracks a password reset request. Requests are stored but
// not driven by this package.
type ResetStatus string

// Reset states.
const (
	ResetNone     ResetStatus = "none"
	ResetPending  ResetStatus = "pending"
	ResetApproved ResetStatus = "approved"
	ResetRejected ResetStatus = "rejected"
)

// User is a house account.
type User struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Email               string       `json:"email"`
	PasswordHash        string       `json:"-"` // never serialised
	Role                tenancy.Role `json:"role"`
	Authorized          bool         `json:"authorized"`
	HouseName           string       `json:"houseName"`
	Photo               string       `json:"photo,omitempty"`
	PasswordResetStatus ResetStatus  `json:"passwordResetStatus"`
	ResetRequestedAt    *time.Time   `json:"passwordResetRequestedAt,omitempty"`
	ResetResolvedAt     *time.Time   `json:"passwordResetResolvedAt,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// Principal returns the caller identity for u.
func (u *User) Principal() *tenancy.Principal {
	return &tenancy.Principal{
		UserID:      u.ID,
		Role:        u.Role,
		HouseName:   u.HouseName,
		Authorized:  u.Authorized || u.Role == tenancy.RoleAdmin,
		DisplayName: u.Name,
	}
}

// RegisterInput registers a new house and its admin.
type RegisterInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	HouseName string `json:"houseName"`
}

// MemberInput adds an account to the admin's house.
type MemberInput struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     tenancy.Role `json:"role"`
}

// ProfileInput edits the caller's own account. Nil fields are left
// unchanged; an empty Photo clears it.
type ProfileInput struct {
	Name  *string `json:"name"`
	Photo *string `json:"photo"`
}

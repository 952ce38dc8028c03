package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/auth"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditWriter appends audit entries.
type AuditWriter interface {
	Create(ctx context.Context, log *audit.AuditLog) error
}

// Service manages house membership.
type Service struct {
	repo   Repository
	audit  AuditWriter
	sink   broadcast.Sink
	logger Logger
}

// NewService creates a membership service.
func NewService(repo Repository, auditor AuditWriter, sink broadcast.Sink) *Service {
	if sink == nil {
		sink = broadcast.Nop{}
	}
	return &Service{repo: repo, audit: auditor, sink: sink, logger: noopLogger{}}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Register creates a house together with its admin account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	house := NormalizeName(in.HouseName)
	if house == "" || len(house) > MaxNameLength {
		return nil, fmt.Errorf("%w: required, at most %d characters", ErrInvalidHouse, MaxNameLength)
	}
	u, err := s.newAccount(in.Name, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.HasAdmin(ctx, house)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAdminExists
	}

	u.Role = tenancy.RoleAdmin
	u.Authorized = true
	u.HouseName = house
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, house, u.ID, "House registered", map[string]any{"email": u.Email})
	s.logger.Info("house registered", "house", house, "admin", u.ID)
	return u, nil
}

// Authenticate checks credentials and returns the account. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "user", u.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if auth.NeedsRehash(u.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
				s.logger.Warn("password rehash failed", "user", u.ID, "error", err)
			}
		}
	}
	return u, nil
}

// Get returns one account of the caller's house.
func (s *Service) Get(ctx context.Context, p *tenancy.Principal, id string) (*User, error) {
	return s.load(ctx, p, id)
}

// AddMember creates an account in the admin's house. Members are
// authorised from the start.
func (s *Service) AddMember(ctx context.Context, p *tenancy.Principal, in MemberInput) (*User, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	if err := tenancy.RequireAdmin(p); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = tenancy.RoleUser
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}
	if role == tenancy.RoleAdmin {
		return nil, ErrAdminExists
	}

	u, err := s.newAccount(in.Name, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	u.Role = role
	u.Authorized = true
	u.HouseName = p.HouseName
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, u.HouseName, p.UserID, "Member added: "+u.Email, map[string]any{"userId": u.ID})
	s.sink.Publish(u.HouseName, broadcast.MemberAdded, u)
	s.logger.Info("member added", "house", u.HouseName, "user", u.ID)
	return u, nil
}

// ListMembers returns the caller's house accounts, admin first.
func (s *Service) ListMembers(ctx context.Context, p *tenancy.Principal) ([]User, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	return s.repo.ListByHouse(ctx, p.HouseName)
}

// Authorize lets a member control devices. Admin only.
func (s *Service) Authorize(ctx context.Context, p *tenancy.Principal, id string) (*User, error) {
	u, err := s.loadForAdmin(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if u.Authorized {
		return u, nil
	}

	u.Authorized = true
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, u.HouseName, p.UserID, "Member authorised: "+u.Email, map[string]any{"userId": u.ID})
	s.sink.Publish(u.HouseName, broadcast.MemberUpdated, u)
	return u, nil
}

// ChangeRole sets a member's role. Admin only; the admin cannot change
// their own role and a house keeps a single admin.
func (s *Service) ChangeRole(ctx context.Context, p *tenancy.Principal, id string, role tenancy.Role) (*User, error) {
	u, err := s.loadForAdmin(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if u.ID == p.UserID {
		return nil, ErrSelfRoleChange
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}
	if u.Role == role {
		return u, nil
	}
	if role == tenancy.RoleAdmin {
		return nil, ErrAdminExists
	}

	u.Role = role
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, u.HouseName, p.UserID, fmt.Sprintf("Role of %s changed to %s", u.Email, role), map[string]any{"userId": u.ID})
	s.sink.Publish(u.HouseName, broadcast.MemberUpdated, u)
	return u, nil
}

// UpdateProfile edits the caller's own name and photo. Any member of the
// house may edit their own profile, authorised or not.
func (s *Service) UpdateProfile(ctx context.Context, p *tenancy.Principal, in ProfileInput) (*User, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	u, err := s.load(ctx, p, p.UserID)
	if err != nil {
		return nil, err
	}

	changed := false
	if in.Name != nil {
		name := NormalizeName(*in.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		if name != u.Name {
			u.Name = name
			changed = true
		}
	}
	if in.Photo != nil {
		photo := strings.TrimSpace(*in.Photo)
		if err := validatePhoto(photo); err != nil {
			return nil, err
		}
		if photo != u.Photo {
			u.Photo = photo
			changed = true
		}
	}
	if !changed {
		return u, nil
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.sink.Publish(u.HouseName, broadcast.MemberUpdated, u)
	return u, nil
}

// UpdatePhoto sets the photo reference of an account in the caller's
// house. The admin may change any account; members only their own.
func (s *Service) UpdatePhoto(ctx context.Context, p *tenancy.Principal, id, photo string) (*User, error) {
	u, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && p.UserID != u.ID {
		return nil, ErrNotOwnPhoto
	}
	photo = strings.TrimSpace(photo)
	if photo == "" {
		return nil, fmt.Errorf("%w: required", ErrInvalidPhoto)
	}
	if err := validatePhoto(photo); err != nil {
		return nil, err
	}
	if photo == u.Photo {
		return u, nil
	}

	u.Photo = photo
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, u.HouseName, p.UserID, "Photo updated for user "+u.Email, map[string]any{"userId": u.ID})
	s.sink.Publish(u.HouseName, broadcast.MemberUpdated, u)
	return u, nil
}

// Delete removes a member. Admin only; the admin account cannot be deleted.
func (s *Service) Delete(ctx context.Context, p *tenancy.Principal, id string) error {
	u, err := s.loadForAdmin(ctx, p, id)
	if err != nil {
		return err
	}
	if u.Role == tenancy.RoleAdmin {
		return ErrAdminUndeletable
	}
	if err := s.repo.Delete(ctx, u); err != nil {
		return err
	}

	s.writeAudit(ctx, u.HouseName, p.UserID, "Member deleted: "+u.Email, map[string]any{"userId": u.ID})
	s.sink.Publish(u.HouseName, broadcast.UserDeleted, map[string]string{"userId": u.ID})
	s.logger.Info("member deleted", "house", u.HouseName, "user", u.ID)
	return nil
}

func (s *Service) newAccount(name, email, password string) (*User, error) {
	name = NormalizeName(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{Name: name, Email: email, PasswordHash: hash}, nil
}

// load fetches an account and verifies it belongs to the caller's house.
func (s *Service) load(ctx context.Context, p *tenancy.Principal, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckHouse(p, u.HouseName); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) loadForAdmin(ctx context.Context, p *tenancy.Principal, id string) (*User, error) {
	u, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.RequireAdmin(p); err != nil {
		return nil, err
	}
	return u, nil
}

// writeAudit records a SECURITY entry. Failures are logged, never returned.
func (s *Service) writeAudit(ctx context.Context, house, actor, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Create(ctx, &audit.AuditLog{
		HouseName: house,
		Type:      audit.TypeSecurity,
		Action:    action,
		UserID:    actor,
		Details:   details,
	})
	if err != nil {
		s.logger.Warn("writing audit log failed", "action", action, "error", err)
	}
}

func requireHouse(p *tenancy.Principal) error {
	if p == nil {
		return tenancy.ErrCrossHouse
	}
	return tenancy.CheckHouse(p, p.HouseName)
}

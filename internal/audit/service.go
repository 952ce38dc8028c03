package audit

import (
	"context"

	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

// Service is the principal-aware read path over the audit trail.
type Service struct {
	repo Repository
}

// NewService creates an audit read service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the caller's house audit entries, most recent first.
// Members never see PASSWORD_REQUEST entries.
func (s *Service) List(ctx context.Context, p *tenancy.Principal, limit, offset int) (*ListResult, error) {
	if err := tenancy.CheckHouse(p, houseOf(p)); err != nil {
		return nil, err
	}
	filter := Filter{HouseName: p.HouseName, Limit: limit, Offset: offset}
	if !p.IsAdmin() {
		filter.ExcludeTypes = []string{TypePasswordRequest}
	}
	return s.repo.List(ctx, filter)
}

// ListSecurity returns SECURITY and PASSWORD_REQUEST entries. Admin only.
func (s *Service) ListSecurity(ctx context.Context, p *tenancy.Principal, limit, offset int) (*ListResult, error) {
	if err := tenancy.CheckHouse(p, houseOf(p)); err != nil {
		return nil, err
	}
	if err := tenancy.RequireAdmin(p); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, Filter{
		HouseName: p.HouseName,
		Types:     []string{TypeSecurity, TypePasswordRequest},
		Limit:     limit,
		Offset:    offset,
	})
}

// houseOf returns the principal's own house so CheckHouse rejects nil or
// house-less principals.
func houseOf(p *tenancy.Principal) string {
	if p == nil {
		return ""
	}
	return p.HouseName
}

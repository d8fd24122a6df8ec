package users

import (
	"context"

	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// PermissionWriter is the subset of the permission engine that manages a
// user's assignments and direct grants.
type PermissionWriter interface {
	AssignRole(ctx context.Context, actorID, userID, roleID int64) error
	RevokeRole(ctx context.Context, actorID, userID, roleID int64) error
	GrantUserPermission(ctx context.Context, actorID, userID int64, key string) error
	RevokeUserPermission(ctx context.Context, actorID, userID int64, key string) error
	GetEffectivePermissions(ctx context.Context, userID int64, forceRefresh bool) (rbac.EffectivePermissions, error)
}

// Service handles user business logic.
type Service struct {
	repo  RepositoryPort
	perms PermissionWriter
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionWriter) *Service {
	return &Service{repo: repo, perms: perms}
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	items, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []User{}
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// Options returns active users for selection widgets.
func (s *Service) Options(ctx context.Context, filter OptionsFilter) ([]Option, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	opts, err := s.repo.Options(ctx, filter)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = []Option{}
	}
	return opts, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// AssignRole gives the user a role and returns the refreshed user.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) (User, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return User{}, err
	}
	if err := s.perms.AssignRole(ctx, actorID, userID, roleID); err != nil {
		return User{}, err
	}
	return s.repo.Get(ctx, userID)
}

// RevokeRole removes a role from the user and returns the refreshed user.
func (s *Service) RevokeRole(ctx context.Context, actorID, userID, roleID int64) (User, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return User{}, err
	}
	if err := s.perms.RevokeRole(ctx, actorID, userID, roleID); err != nil {
		return User{}, err
	}
	return s.repo.Get(ctx, userID)
}

// GrantPermission gives the user a direct permission.
func (s *Service) GrantPermission(ctx context.Context, actorID, userID int64, key string) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	return s.perms.GrantUserPermission(ctx, actorID, userID, key)
}

// RevokePermission removes a direct permission from the user.
func (s *Service) RevokePermission(ctx context.Context, actorID, userID int64, key string) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	return s.perms.RevokeUserPermission(ctx, actorID, userID, key)
}

// EffectivePermissions resolves the user's permission set.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64, forceRefresh bool) (rbac.EffectivePermissions, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return rbac.EffectivePermissions{}, err
	}
	return s.perms.GetEffectivePermissions(ctx, userID, forceRefresh)
}

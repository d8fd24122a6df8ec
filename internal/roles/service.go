package roles

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// PermissionWriter is the subset of the permission engine that mutates role
// links. Every call invalidates the affected users' cached permissions.
type PermissionWriter interface {
	GrantRolePermission(ctx context.Context, actorID, roleID int64, key string) error
	RevokeRolePermission(ctx context.Context, actorID, roleID int64, key string) error
	SetRolePermissions(ctx context.Context, actorID, roleID int64, keys []string) error
	SetRoleActive(ctx context.Context, actorID, roleID int64, active bool) error
	SetRoleAdminModules(ctx context.Context, actorID, roleID int64, modules map[string]bool) error
	EnsureRoleMutable(ctx context.Context, roleID int64) error
	IsReservedCode(code string) bool
	InvalidateRole(ctx context.Context, roleID int64) (int, error)
}

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	perms  PermissionWriter
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, perms PermissionWriter, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, perms: perms, audit: audit, logger: logger}
}

// List returns one page of roles.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	items, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Role{}
	}
	return ListResult{Items: items, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// Options returns active roles for selection widgets.
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

// Get returns a single role.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new role. Codes are stored lower-cased.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (Role, error) {
	in.Code = strings.ToLower(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if s.perms.IsReservedCode(in.Code) {
		return Role{}, ErrReservedCode
	}
	role, err := s.repo.Create(ctx, in)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "roles.create", role.ID, map[string]any{"code": role.Code})
	return role, nil
}

// Update changes a role's name and description. System roles are rejected.
// Members' cached permission sets carry the role name, so they are dropped.
func (s *Service) Update(ctx context.Context, actorID int64, in UpdateInput) (Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.perms.EnsureRoleMutable(ctx, in.ID); err != nil {
		return Role{}, err
	}
	role, err := s.repo.Update(ctx, in)
	if err != nil {
		return Role{}, err
	}
	if _, err := s.perms.InvalidateRole(ctx, role.ID); err != nil {
		s.logger.WarnContext(ctx, "invalidate role members", slog.Int64("role_id", role.ID), slog.Any("error", err))
	}
	s.record(ctx, actorID, "roles.update", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// SetActive toggles the role and returns the refreshed view.
func (s *Service) SetActive(ctx context.Context, actorID, roleID int64, active bool) (Role, error) {
	if err := s.perms.SetRoleActive(ctx, actorID, roleID, active); err != nil {
		return Role{}, err
	}
	return s.repo.Get(ctx, roleID)
}

// GrantPermission links a permission to the role.
func (s *Service) GrantPermission(ctx context.Context, actorID, roleID int64, key string) error {
	return s.perms.GrantRolePermission(ctx, actorID, roleID, key)
}

// RevokePermission unlinks a permission from the role.
func (s *Service) RevokePermission(ctx context.Context, actorID, roleID int64, key string) error {
	return s.perms.RevokeRolePermission(ctx, actorID, roleID, key)
}

// SetPermissions replaces the role's permission set.
func (s *Service) SetPermissions(ctx context.Context, actorID, roleID int64, keys []string) (Role, error) {
	if err := s.perms.SetRolePermissions(ctx, actorID, roleID, keys); err != nil {
		return Role{}, err
	}
	return s.repo.Get(ctx, roleID)
}

// SetAdminModules replaces the modules the role administers.
func (s *Service) SetAdminModules(ctx context.Context, actorID, roleID int64, modules map[string]bool) (Role, error) {
	if err := s.perms.SetRoleAdminModules(ctx, actorID, roleID, modules); err != nil {
		return Role{}, err
	}
	return s.repo.Get(ctx, roleID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, roleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

const (
	// PermissionCachePrefix namespaces effective permission entries.
	PermissionCachePrefix = "rbac:perm:"
	// PermissionVersionPrefix namespaces the per-user invalidation counters.
	PermissionVersionPrefix = "rbac:permver:"
	// PermissionCacheTTL bounds how long a cached result may be served.
	PermissionCacheTTL = 30 * time.Minute
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = fmt.Errorf("rbac: %w", httpx.ErrNotFound)
	// ErrSystemRole indicates an attempt to change a system role.
	ErrSystemRole = fmt.Errorf("rbac: system role cannot be modified: %w", httpx.ErrForbidden)
	// ErrInvalidInput indicates malformed mutation arguments.
	ErrInvalidInput = fmt.Errorf("rbac: invalid input: %w", httpx.ErrValidation)
)

// DefaultAdminCodes lists role codes that confer global admin.
var DefaultAdminCodes = []string{"admin", "super_admin"}

// Service resolves effective permissions and owns every authorization write path.
type Service struct {
	repo       Repository
	cache      *cache.Store
	adminCodes map[string]struct{}
	logger     *slog.Logger
	audit      shared.AuditRecorder
	events     shared.EventPublisher
}

// Option customises a Service.
type Option func(*Service)

// WithAdminCodes replaces the reserved admin role codes.
func WithAdminCodes(codes ...string) Option {
	return func(s *Service) {
		s.adminCodes = make(map[string]struct{}, len(codes))
		for _, c := range codes {
			c = strings.ToLower(strings.TrimSpace(c))
			if c != "" {
				s.adminCodes[c] = struct{}{}
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder records every mutation.
func WithAuditRecorder(audit shared.AuditRecorder) Option {
	return func(s *Service) { s.audit = audit }
}

// WithEventPublisher publishes every mutation.
func WithEventPublisher(events shared.EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// NewService constructs a Service. A nil store behaves as a disabled cache.
func NewService(repo Repository, store *cache.Store, opts ...Option) *Service {
	if store == nil {
		store = cache.NewDisabledStore()
	}
	s := &Service{repo: repo, cache: store, logger: slog.Default()}
	WithAdminCodes(DefaultAdminCodes...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository exposes the backing repository to sibling packages.
func (s *Service) Repository() Repository {
	return s.repo
}

// GetEffectivePermissions returns the user's permission set, roles and admin
// scope. Unless forceRefresh is set a well-formed cache entry is served.
//
// Entries carry the user's invalidation counter as read before computing. A
// result computed before a concurrent mutation is stamped with the old
// counter, so it is never served once that mutation has invalidated the user.
func (s *Service) GetEffectivePermissions(ctx context.Context, userID int64, forceRefresh bool) (EffectivePermissions, error) {
	key := cacheKey(userID)
	version, versioned := s.cache.Counter(ctx, key, versionOptions())
	if !forceRefresh && versioned {
		cached, ok := cache.Get[cachedPermissions](ctx, s.cache, key, cacheOptions())
		if ok && cached.wellFormed() && cached.Version == version {
			return cached.toEffective(), nil
		}
	}
	result, err := s.compute(ctx, userID)
	if err != nil {
		return EffectivePermissions{}, err
	}
	if versioned {
		entry := result.toCached()
		entry.Version = version
		s.cache.Set(ctx, key, entry, cacheOptions())
	}
	return result, nil
}

func (s *Service) compute(ctx context.Context, userID int64) (EffectivePermissions, error) {
	result := EffectivePermissions{
		Permissions:  map[string]struct{}{},
		Roles:        []RoleRef{},
		AdminModules: map[string]struct{}{},
	}
	roles, err := s.repo.ActiveRolesForUser(ctx, userID)
	if err != nil {
		return EffectivePermissions{}, fmt.Errorf("rbac: load roles: %w", err)
	}
	roleIDs := make([]int64, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
		result.Roles = append(result.Roles, RoleRef{ID: role.ID, Code: role.Code, Name: role.Name})
		if role.IsSystem || s.isAdminCode(role.Code) {
			result.IsGlobalAdmin = true
		}
		for module, enabled := range role.AdminModules {
			if enabled {
				result.AdminModules[strings.ToLower(module)] = struct{}{}
			}
		}
	}
	rolePerms, err := s.repo.ActivePermissionKeysForRoles(ctx, roleIDs)
	if err != nil {
		return EffectivePermissions{}, fmt.Errorf("rbac: load role permissions: %w", err)
	}
	for _, key := range normalizePermissions(rolePerms) {
		result.Permissions[key] = struct{}{}
	}
	// Direct grants only ever add to the set.
	overrides, err := s.repo.ActiveOverrideKeysForUser(ctx, userID)
	if err != nil {
		return EffectivePermissions{}, fmt.Errorf("rbac: load overrides: %w", err)
	}
	for _, key := range normalizePermissions(overrides) {
		result.Permissions[key] = struct{}{}
	}
	return result, nil
}

// EffectivePermissions returns the sorted permission keys for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	result, err := s.GetEffectivePermissions(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return result.PermissionList(), nil
}

// HasPermission reports whether the user holds key.
func (s *Service) HasPermission(ctx context.Context, userID int64, key string) (bool, error) {
	result, err := s.GetEffectivePermissions(ctx, userID, false)
	if err != nil {
		return false, err
	}
	return result.Has(key), nil
}

// HasAnyPermission reports whether the user holds at least one key.
func (s *Service) HasAnyPermission(ctx context.Context, userID int64, keys []string) (bool, error) {
	result, err := s.GetEffectivePermissions(ctx, userID, false)
	if err != nil {
		return false, err
	}
	return result.HasAny(normalizePermissions(keys)), nil
}

// HasAllPermissions reports whether the user holds every key.
func (s *Service) HasAllPermissions(ctx context.Context, userID int64, keys []string) (bool, error) {
	result, err := s.GetEffectivePermissions(ctx, userID, false)
	if err != nil {
		return false, err
	}
	return result.HasAll(normalizePermissions(keys)), nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error) {
	return s.repo.ListPermissions(ctx, filter)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// EnsureRoleMutable returns ErrSystemRole when roleID names a system role.
func (s *Service) EnsureRoleMutable(ctx context.Context, roleID int64) error {
	_, err := mutableRole(ctx, s.repo, roleID)
	return err
}

// IsReservedCode reports whether code is one of the configured admin codes.
func (s *Service) IsReservedCode(code string) bool {
	return s.isAdminCode(code)
}

func (s *Service) isAdminCode(code string) bool {
	_, ok := s.adminCodes[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

func cacheKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func cacheOptions() cache.Options {
	return cache.Options{Prefix: PermissionCachePrefix, TTL: PermissionCacheTTL}
}

func versionOptions() cache.Options {
	return cache.Options{Prefix: PermissionVersionPrefix}
}

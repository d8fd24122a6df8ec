package rbac

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Change describes a committed authorization write.
type Change struct {
	Action        string         `json:"action"`
	Entity        string         `json:"entity"`
	EntityID      int64          `json:"entity_id"`
	ActorID       int64          `json:"actor_id"`
	Meta          map[string]any `json:"meta,omitempty"`
	AffectedUsers []int64        `json:"affected_users"`
}

// GrantRolePermission activates the link between a role and a permission.
func (s *Service) GrantRolePermission(ctx context.Context, actorID, roleID int64, key string) error {
	return s.setRolePermission(ctx, actorID, roleID, key, true)
}

// RevokeRolePermission deactivates the link between a role and a permission.
func (s *Service) RevokeRolePermission(ctx context.Context, actorID, roleID int64, key string) error {
	return s.setRolePermission(ctx, actorID, roleID, key, false)
}

func (s *Service) setRolePermission(ctx context.Context, actorID, roleID int64, key string, active bool) error {
	var affected []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := mutableRole(ctx, repo, roleID); err != nil {
			return err
		}
		perm, err := resolvePermission(ctx, repo, key, active)
		if err != nil {
			return err
		}
		if err := repo.SetRolePermissionActive(ctx, roleID, perm.ID, active); err != nil {
			return err
		}
		affected, err = repo.ActiveUserIDsForRole(ctx, roleID)
		return err
	})
	if err != nil {
		return err
	}
	action := "rbac.role.permission.revoke"
	if active {
		action = "rbac.role.permission.grant"
	}
	s.afterChange(ctx, Change{Action: action, Entity: "role", EntityID: roleID, ActorID: actorID, Meta: map[string]any{"permission": normalizeKey(key)}}, affected)
	return nil
}

// SetRolePermissions makes keys the exact active permission set of the role.
func (s *Service) SetRolePermissions(ctx context.Context, actorID, roleID int64, keys []string) error {
	desired := normalizePermissions(keys)
	var (
		affected       []int64
		added, removed []string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := mutableRole(ctx, repo, roleID); err != nil {
			return err
		}
		current, err := repo.RolePermissionKeys(ctx, roleID)
		if err != nil {
			return err
		}
		existing := toSet(normalizePermissions(current))
		keep := toSet(desired)
		for _, key := range desired {
			if _, ok := existing[key]; ok {
				continue
			}
			perm, err := resolvePermission(ctx, repo, key, true)
			if err != nil {
				return err
			}
			if err := repo.SetRolePermissionActive(ctx, roleID, perm.ID, true); err != nil {
				return err
			}
			added = append(added, key)
		}
		for key := range existing {
			if _, ok := keep[key]; ok {
				continue
			}
			perm, err := resolvePermission(ctx, repo, key, false)
			if err != nil {
				return err
			}
			if err := repo.SetRolePermissionActive(ctx, roleID, perm.ID, false); err != nil {
				return err
			}
			removed = append(removed, key)
		}
		affected, err = repo.ActiveUserIDsForRole(ctx, roleID)
		return err
	})
	if err != nil {
		return err
	}
	sort.Strings(added)
	sort.Strings(removed)
	s.afterChange(ctx, Change{Action: "rbac.role.permission.set", Entity: "role", EntityID: roleID, ActorID: actorID, Meta: map[string]any{"added": added, "removed": removed}}, affected)
	return nil
}

// SetRoleActive toggles a role on or off.
func (s *Service) SetRoleActive(ctx context.Context, actorID, roleID int64, active bool) error {
	var affected []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := mutableRole(ctx, repo, roleID); err != nil {
			return err
		}
		if err := repo.SetRoleActive(ctx, roleID, active); err != nil {
			return err
		}
		var err error
		affected, err = repo.ActiveUserIDsForRole(ctx, roleID)
		return err
	})
	if err != nil {
		return err
	}
	s.afterChange(ctx, Change{Action: "rbac.role.active", Entity: "role", EntityID: roleID, ActorID: actorID, Meta: map[string]any{"active": active}}, affected)
	return nil
}

// SetRoleAdminModules replaces the admin-scope map of a role.
func (s *Service) SetRoleAdminModules(ctx context.Context, actorID, roleID int64, modules map[string]bool) error {
	normalized := make(map[string]bool, len(modules))
	for module, enabled := range modules {
		module = strings.ToLower(strings.TrimSpace(module))
		if module == "" || strings.Contains(module, ".") {
			return ErrInvalidInput
		}
		normalized[module] = enabled
	}
	var affected []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := mutableRole(ctx, repo, roleID); err != nil {
			return err
		}
		if err := repo.SetRoleAdminModules(ctx, roleID, normalized); err != nil {
			return err
		}
		var err error
		affected, err = repo.ActiveUserIDsForRole(ctx, roleID)
		return err
	})
	if err != nil {
		return err
	}
	s.afterChange(ctx, Change{Action: "rbac.role.admin_modules", Entity: "role", EntityID: roleID, ActorID: actorID, Meta: map[string]any{"modules": normalized}}, affected)
	return nil
}

// AssignRole activates the user's membership of a role.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	return s.setUserRole(ctx, actorID, userID, roleID, true)
}

// RevokeRole deactivates the user's membership of a role.
func (s *Service) RevokeRole(ctx context.Context, actorID, userID, roleID int64) error {
	return s.setUserRole(ctx, actorID, userID, roleID, false)
}

func (s *Service) setUserRole(ctx context.Context, actorID, userID, roleID int64, active bool) error {
	if userID <= 0 {
		return ErrInvalidInput
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetRole(ctx, roleID); err != nil {
			return err
		}
		return repo.SetUserRoleActive(ctx, userID, roleID, actorID, active)
	})
	if err != nil {
		return err
	}
	action := "rbac.user.role.revoke"
	if active {
		action = "rbac.user.role.assign"
	}
	s.afterChange(ctx, Change{Action: action, Entity: "user", EntityID: userID, ActorID: actorID, Meta: map[string]any{"role_id": roleID}}, []int64{userID})
	return nil
}

// GrantUserPermission adds a direct grant to a user.
func (s *Service) GrantUserPermission(ctx context.Context, actorID, userID int64, key string) error {
	return s.setUserPermission(ctx, actorID, userID, key, true)
}

// RevokeUserPermission deactivates a direct grant. It never removes
// permissions the user holds through roles.
func (s *Service) RevokeUserPermission(ctx context.Context, actorID, userID int64, key string) error {
	return s.setUserPermission(ctx, actorID, userID, key, false)
}

func (s *Service) setUserPermission(ctx context.Context, actorID, userID int64, key string, active bool) error {
	if userID <= 0 {
		return ErrInvalidInput
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		perm, err := resolvePermission(ctx, repo, key, active)
		if err != nil {
			return err
		}
		return repo.SetUserPermissionActive(ctx, userID, perm.ID, actorID, active)
	})
	if err != nil {
		return err
	}
	action := "rbac.user.permission.revoke"
	if active {
		action = "rbac.user.permission.grant"
	}
	s.afterChange(ctx, Change{Action: action, Entity: "user", EntityID: userID, ActorID: actorID, Meta: map[string]any{"permission": normalizeKey(key)}}, []int64{userID})
	return nil
}

// afterChange runs once the write has committed: cache eviction first, then
// the audit trail and the change event.
func (s *Service) afterChange(ctx context.Context, change Change, affected []int64) {
	if affected == nil {
		affected = []int64{}
	}
	change.AffectedUsers = affected
	s.InvalidateUsers(ctx, affected)

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  change.ActorID,
			Action:   change.Action,
			Entity:   change.Entity,
			EntityID: strconv.FormatInt(change.EntityID, 10),
			Meta:     change.Meta,
		}); err != nil {
			s.logger.Warn("rbac audit", slog.String("action", change.Action), slog.Any("error", err))
		}
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, change.Action, change); err != nil {
			s.logger.Warn("rbac publish change", slog.String("action", change.Action), slog.Any("error", err))
		}
	}
	s.logger.Info("rbac change",
		slog.String("action", change.Action),
		slog.String("entity", change.Entity),
		slog.Int64("entity_id", change.EntityID),
		slog.Int("affected_users", len(affected)),
	)
}

func mutableRole(ctx context.Context, repo Repository, roleID int64) (Role, error) {
	role, err := repo.GetRole(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	if role.IsSystem {
		return Role{}, ErrSystemRole
	}
	return role, nil
}

// resolvePermission looks up a catalog entry. Granting requires an active
// entry; revoking accepts inactive ones so stale links can still be removed.
func resolvePermission(ctx context.Context, repo Repository, key string, requireActive bool) (Permission, error) {
	key = normalizeKey(key)
	if key == "" {
		return Permission{}, ErrInvalidInput
	}
	perm, err := repo.PermissionByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	if requireActive && !perm.Active {
		return Permission{}, ErrNotFound
	}
	return perm, nil
}

func normalizeKey(key string) string {
	return strings.TrimSpace(strings.ToLower(key))
}

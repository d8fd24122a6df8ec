package rbac

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type link [2]int64

// memRepo is an in-memory Repository used across the package tests.
type memRepo struct {
	mu        sync.Mutex
	roles     map[int64]*Role
	perms     map[int64]*Permission
	rolePerms map[link]bool
	userRoles map[link]bool
	userPerms map[link]bool

	roleLoads int
	failWith  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		roles:     map[int64]*Role{},
		perms:     map[int64]*Permission{},
		rolePerms: map[link]bool{},
		userRoles: map[link]bool{},
		userPerms: map[link]bool{},
	}
}

func (m *memRepo) addRole(id int64, code string, system bool, adminModules map[string]bool) *memRepo {
	if adminModules == nil {
		adminModules = map[string]bool{}
	}
	m.roles[id] = &Role{ID: id, Code: code, Name: strings.ToUpper(code), IsSystem: system, Active: true, AdminModules: adminModules}
	return m
}

func (m *memRepo) addPerm(id int64, key string) *memRepo {
	parts := strings.SplitN(key, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	m.perms[id] = &Permission{ID: id, Key: key, Module: parts[0], Resource: parts[1], Action: parts[2], Active: true}
	return m
}

func (m *memRepo) link(roleID, permID int64) *memRepo {
	m.rolePerms[link{roleID, permID}] = true
	return m
}

func (m *memRepo) assign(userID, roleID int64) *memRepo {
	m.userRoles[link{userID, roleID}] = true
	return m
}

func (m *memRepo) grant(userID, permID int64) *memRepo {
	m.userPerms[link{userID, permID}] = true
	return m
}

func (m *memRepo) ActiveRolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleLoads++
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []Role
	for l, active := range m.userRoles {
		if !active || l[0] != userID {
			continue
		}
		if role, ok := m.roles[l[1]]; ok && role.Active {
			out = append(out, *role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) ActivePermissionKeysForRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := map[int64]bool{}
	for _, id := range roleIDs {
		wanted[id] = true
	}
	var out []string
	for l, active := range m.rolePerms {
		if !active || !wanted[l[0]] {
			continue
		}
		if p, ok := m.perms[l[1]]; ok && p.Active {
			out = append(out, p.Key)
		}
	}
	return out, nil
}

func (m *memRepo) ActiveOverrideKeysForUser(ctx context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for l, active := range m.userPerms {
		if !active || l[0] != userID {
			continue
		}
		if p, ok := m.perms[l[1]]; ok && p.Active {
			out = append(out, p.Key)
		}
	}
	return out, nil
}

func (m *memRepo) ActiveUserIDsForRole(ctx context.Context, roleID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for l, active := range m.userRoles {
		if active && l[1] == roleID {
			out = append(out, l[0])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return *role, nil
}

func (m *memRepo) PermissionByKey(ctx context.Context, key string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Key == key {
			return *p, nil
		}
	}
	return Permission{}, ErrNotFound
}

func (m *memRepo) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Permission
	for _, p := range m.perms {
		if filter.Module != "" && p.Module != filter.Module {
			continue
		}
		if filter.ActiveOnly && !p.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memRepo) RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for l, active := range m.rolePerms {
		if active && l[0] == roleID {
			out = append(out, m.perms[l[1]].Key)
		}
	}
	return out, nil
}

func (m *memRepo) SetRolePermissionActive(ctx context.Context, roleID, permissionID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolePerms[link{roleID, permissionID}] = active
	return nil
}

func (m *memRepo) SetRoleActive(ctx context.Context, roleID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	role.Active = active
	return nil
}

func (m *memRepo) SetRoleAdminModules(ctx context.Context, roleID int64, modules map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	role.AdminModules = modules
	return nil
}

func (m *memRepo) SetUserRoleActive(ctx context.Context, userID, roleID, actorID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRoles[link{userID, roleID}] = active
	return nil
}

func (m *memRepo) SetUserPermissionActive(ctx context.Context, userID, permissionID, actorID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userPerms[link{userID, permissionID}] = active
	return nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

// Package admin exposes the permission catalog and cache administration as
// RPC business objects.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Engine is the slice of the permission engine these objects use.
type Engine interface {
	GetEffectivePermissions(ctx context.Context, userID int64, forceRefresh bool) (rbac.EffectivePermissions, error)
	ListPermissions(ctx context.Context, filter rbac.PermissionFilter) ([]rbac.Permission, error)
	InvalidateUser(ctx context.Context, userID int64) bool
	InvalidateRole(ctx context.Context, roleID int64) (int, error)
	InvalidateAll(ctx context.Context) int
}

// Manifest exposes permissions.list, permissions.dropdown and rbac.curd.
func Manifest() module.Manifest {
	return module.Manifest{
		Code: "rbac",
		Models: map[string]module.Factory{
			"permissions.list":     factory(func(e Engine) rpc.Model { return NewPermissionList(e) }),
			"permissions.dropdown": factory(func(e Engine) rpc.Model { return NewPermissionDropdown(e) }),
			"rbac.curd":            factory(func(e Engine) rpc.Model { return NewCacheAdmin(e) }),
		},
	}
}

func factory(build func(Engine) rpc.Model) module.Factory {
	return func(deps module.Deps) (rpc.Model, error) {
		if deps.Permissions == nil {
			return nil, errors.New("rbac/admin: permission service required")
		}
		return build(deps.Permissions), nil
	}
}

type catalogFilter struct {
	Module     string `json:"module" validate:"max=64"`
	Search     string `json:"search" validate:"max=128"`
	ActiveOnly bool   `json:"activeOnly"`
}

func (f catalogFilter) toRBAC() rbac.PermissionFilter {
	return rbac.PermissionFilter{
		Module:     strings.ToLower(strings.TrimSpace(f.Module)),
		Search:     f.Search,
		ActiveOnly: f.ActiveOnly,
	}
}

// PermissionList serves the permission catalog.
type PermissionList struct {
	rpc.Rules
	engine Engine
}

// NewPermissionList builds the permissions.list object.
func NewPermissionList(engine Engine) *PermissionList {
	return &PermissionList{engine: engine, Rules: rpc.Rules{"getData": rpc.Require(shared.PermPermissionsView)}}
}

// Methods implements rpc.Model.
func (m *PermissionList) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{"getData": m.getData}
}

func (m *PermissionList) getData(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var filter catalogFilter
	if err := params.Bind(&filter); err != nil {
		return nil, err
	}
	perms, err := m.engine.ListPermissions(ctx, filter.toRBAC())
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []rbac.Permission{}
	}
	return map[string]any{"items": perms, "total": len(perms)}, nil
}

// Option is a permission dropdown entry.
type Option struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Module string `json:"module"`
}

// PermissionDropdown serves active permission keys for selection widgets.
type PermissionDropdown struct {
	rpc.Rules
	engine Engine
}

// NewPermissionDropdown builds the permissions.dropdown object.
func NewPermissionDropdown(engine Engine) *PermissionDropdown {
	return &PermissionDropdown{engine: engine, Rules: rpc.Rules{"getOptions": rpc.Require(shared.PermPermissionsView)}}
}

// Methods implements rpc.Model.
func (m *PermissionDropdown) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{"getOptions": m.getOptions}
}

func (m *PermissionDropdown) getOptions(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var filter catalogFilter
	if err := params.Bind(&filter); err != nil {
		return nil, err
	}
	rf := filter.toRBAC()
	rf.ActiveOnly = true
	perms, err := m.engine.ListPermissions(ctx, rf)
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(perms))
	for _, p := range perms {
		label := p.Description
		if label == "" {
			label = p.Key
		}
		out = append(out, Option{Value: p.Key, Label: label, Module: p.Module})
	}
	return out, nil
}

type userTarget struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

type roleTarget struct {
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

type refreshFlag struct {
	ForceRefresh bool `json:"forceRefresh"`
}

// CacheAdmin serves the caller's own permission set and cache maintenance.
type CacheAdmin struct {
	rpc.Rules
	engine Engine
}

// NewCacheAdmin builds the rbac.curd object. getMyPermissions carries no rule
// because it needs only an identity, which the handler checks itself.
func NewCacheAdmin(engine Engine) *CacheAdmin {
	manage := rpc.Require(shared.PermRBACCacheManage)
	return &CacheAdmin{engine: engine, Rules: rpc.Rules{
		"invalidateUser": manage,
		"invalidateRole": manage,
		"purgeCache":     manage,
	}}
}

// Methods implements rpc.Model.
func (m *CacheAdmin) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{
		"getMyPermissions": m.myPermissions,
		"invalidateUser":   m.invalidateUser,
		"invalidateRole":   m.invalidateRole,
		"purgeCache":       m.purge,
	}
}

func (m *CacheAdmin) myPermissions(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	userID, ok := rpc.CallerID(ctx)
	if !ok {
		return nil, rpc.NewError(rpc.CodeAuthRequired, "", nil)
	}
	var in refreshFlag
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.engine.GetEffectivePermissions(ctx, userID, in.ForceRefresh)
}

func (m *CacheAdmin) invalidateUser(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in userTarget
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return map[string]any{"userId": in.UserID, "removed": m.engine.InvalidateUser(ctx, in.UserID)}, nil
}

func (m *CacheAdmin) invalidateRole(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in roleTarget
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	removed, err := m.engine.InvalidateRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"roleId": in.RoleID, "removed": removed}, nil
}

func (m *CacheAdmin) purge(ctx context.Context, _ rpc.Params, _ *http.Request) (any, error) {
	return map[string]any{"removed": m.engine.InvalidateAll(ctx)}, nil
}

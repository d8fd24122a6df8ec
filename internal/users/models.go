package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Manifest exposes the user management business objects.
func Manifest() module.Manifest {
	return module.Manifest{
		Code: "users",
		Models: map[string]module.Factory{
			"users.list":     factory(func(s *Service) rpc.Model { return NewListModel(s) }),
			"users.dropdown": factory(func(s *Service) rpc.Model { return NewDropdownModel(s) }),
			"users.curd":     factory(func(s *Service) rpc.Model { return NewCurdModel(s) }),
		},
	}
}

func factory(build func(*Service) rpc.Model) module.Factory {
	return func(deps module.Deps) (rpc.Model, error) {
		if deps.Pool == nil {
			return nil, errors.New("users: database pool required")
		}
		if deps.Permissions == nil {
			return nil, errors.New("users: permission service required")
		}
		return build(NewService(NewRepository(deps.Pool), deps.Permissions)), nil
	}
}

// ListModel serves paginated user listings.
type ListModel struct {
	rpc.Rules
	svc *Service
}

// NewListModel builds the users.list object.
func NewListModel(svc *Service) *ListModel {
	return &ListModel{svc: svc, Rules: rpc.Rules{"getData": rpc.Require(shared.PermUsersView)}}
}

// Methods implements rpc.Model.
func (m *ListModel) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{"getData": m.getData}
}

func (m *ListModel) getData(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var filter ListFilter
	if err := params.Bind(&filter); err != nil {
		return nil, err
	}
	return m.svc.List(ctx, filter)
}

// DropdownModel serves user options.
type DropdownModel struct {
	rpc.Rules
	svc *Service
}

// NewDropdownModel builds the users.dropdown object.
func NewDropdownModel(svc *Service) *DropdownModel {
	return &DropdownModel{svc: svc, Rules: rpc.Rules{"getOptions": rpc.Require(shared.PermUsersView)}}
}

// Methods implements rpc.Model.
func (m *DropdownModel) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{"getOptions": m.getOptions}
}

func (m *DropdownModel) getOptions(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var filter OptionsFilter
	if err := params.Bind(&filter); err != nil {
		return nil, err
	}
	return m.svc.Options(ctx, filter)
}

type userRef struct {
	ID           int64 `json:"id" validate:"required,gt=0"`
	ForceRefresh bool  `json:"forceRefresh"`
}

type roleAssignment struct {
	ID     int64 `json:"id" validate:"required,gt=0"`
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

type permissionGrant struct {
	ID         int64  `json:"id" validate:"required,gt=0"`
	Permission string `json:"permission" validate:"required,max=128"`
}

// CurdModel serves user reads and access writes.
type CurdModel struct {
	rpc.Rules
	svc *Service
}

// NewCurdModel builds the users.curd object.
func NewCurdModel(svc *Service) *CurdModel {
	view := rpc.Require(shared.PermUsersView)
	edit := rpc.Require(shared.PermUsersEdit)
	return &CurdModel{svc: svc, Rules: rpc.Rules{
		"get":                     view,
		"getEffectivePermissions": view,
		"assignRole":              edit,
		"revokeRole":              edit,
		"grantPermission":         edit,
		"revokePermission":        edit,
	}}
}

// Methods implements rpc.Model.
func (m *CurdModel) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{
		"get":                     m.get,
		"getEffectivePermissions": m.effectivePermissions,
		"assignRole":              m.assignRole,
		"revokeRole":              m.revokeRole,
		"grantPermission":         m.grantPermission,
		"revokePermission":        m.revokePermission,
	}
}

func (m *CurdModel) get(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in userRef
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.Get(ctx, in.ID)
}

func (m *CurdModel) effectivePermissions(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in userRef
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.EffectivePermissions(ctx, in.ID, in.ForceRefresh)
}

func (m *CurdModel) assignRole(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in roleAssignment
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.AssignRole(ctx, actor(ctx), in.ID, in.RoleID)
}

func (m *CurdModel) revokeRole(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in roleAssignment
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.RevokeRole(ctx, actor(ctx), in.ID, in.RoleID)
}

func (m *CurdModel) grantPermission(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in permissionGrant
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	if err := m.svc.GrantPermission(ctx, actor(ctx), in.ID, in.Permission); err != nil {
		return nil, err
	}
	return map[string]any{"id": in.ID, "permission": in.Permission, "granted": true}, nil
}

func (m *CurdModel) revokePermission(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in permissionGrant
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	if err := m.svc.RevokePermission(ctx, actor(ctx), in.ID, in.Permission); err != nil {
		return nil, err
	}
	return map[string]any{"id": in.ID, "permission": in.Permission, "granted": false}, nil
}

func actor(ctx context.Context) int64 {
	id, _ := rpc.CallerID(ctx)
	return id
}

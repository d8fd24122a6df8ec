package roles

import (
	"context"
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Manifest exposes the role management business objects.
func Manifest() module.Manifest {
	return module.Manifest{
		Code: "roles",
		Models: map[string]module.Factory{
			"roles.list":     factory(func(s *Service) rpc.Model { return NewListModel(s) }),
			"roles.dropdown": factory(func(s *Service) rpc.Model { return NewDropdownModel(s) }),
			"roles.curd":     factory(func(s *Service) rpc.Model { return NewCurdModel(s) }),
		},
	}
}

func factory(build func(*Service) rpc.Model) module.Factory {
	return func(deps module.Deps) (rpc.Model, error) {
		if deps.Pool == nil {
			return nil, errors.New("roles: database pool required")
		}
		if deps.Permissions == nil {
			return nil, errors.New("roles: permission service required")
		}
		return build(NewService(NewRepository(deps.Pool), deps.Permissions, deps.Audit, deps.Logger)), nil
	}
}

// ListModel serves paginated role listings.
type ListModel struct {
	rpc.Rules
	svc *Service
}

// NewListModel builds the roles.list object.
func NewListModel(svc *Service) *ListModel {
	return &ListModel{svc: svc, Rules: rpc.Rules{"getData": rpc.Require(shared.PermRolesView)}}
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

// DropdownModel serves role options.
type DropdownModel struct {
	rpc.Rules
	svc *Service
}

// NewDropdownModel builds the roles.dropdown object.
func NewDropdownModel(svc *Service) *DropdownModel {
	return &DropdownModel{svc: svc, Rules: rpc.Rules{"getOptions": rpc.Require(shared.PermRolesView)}}
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

type roleRef struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

type permissionRef struct {
	ID         int64  `json:"id" validate:"required,gt=0"`
	Permission string `json:"permission" validate:"required,max=128"`
}

type permissionSet struct {
	ID          int64    `json:"id" validate:"required,gt=0"`
	Permissions []string `json:"permissions" validate:"dive,required,max=128"`
}

type activeFlag struct {
	ID     int64 `json:"id" validate:"required,gt=0"`
	Active *bool `json:"active" validate:"required"`
}

type adminModules struct {
	ID      int64           `json:"id" validate:"required,gt=0"`
	Modules map[string]bool `json:"modules"`
}

// CurdModel serves role reads and writes.
type CurdModel struct {
	rpc.Rules
	svc *Service
}

// NewCurdModel builds the roles.curd object.
func NewCurdModel(svc *Service) *CurdModel {
	view := rpc.Require(shared.PermRolesView)
	edit := rpc.Require(shared.PermRolesEdit)
	return &CurdModel{svc: svc, Rules: rpc.Rules{
		"get":              view,
		"create":           edit,
		"update":           edit,
		"setActive":        edit,
		"grantPermission":  edit,
		"revokePermission": edit,
		"setPermissions":   edit,
		"setAdminModules":  edit,
	}}
}

// Methods implements rpc.Model.
func (m *CurdModel) Methods() map[string]rpc.Handler {
	return map[string]rpc.Handler{
		"get":              m.get,
		"create":           m.create,
		"update":           m.update,
		"setActive":        m.setActive,
		"grantPermission":  m.grantPermission,
		"revokePermission": m.revokePermission,
		"setPermissions":   m.setPermissions,
		"setAdminModules":  m.setAdminModules,
	}
}

func (m *CurdModel) get(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in roleRef
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.Get(ctx, in.ID)
}

func (m *CurdModel) create(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in CreateInput
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.Create(ctx, actor(ctx), in)
}

func (m *CurdModel) update(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in UpdateInput
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.Update(ctx, actor(ctx), in)
}

func (m *CurdModel) setActive(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in activeFlag
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.SetActive(ctx, actor(ctx), in.ID, *in.Active)
}

func (m *CurdModel) grantPermission(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in permissionRef
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	if err := m.svc.GrantPermission(ctx, actor(ctx), in.ID, in.Permission); err != nil {
		return nil, err
	}
	return map[string]any{"id": in.ID, "permission": in.Permission, "granted": true}, nil
}

func (m *CurdModel) revokePermission(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in permissionRef
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	if err := m.svc.RevokePermission(ctx, actor(ctx), in.ID, in.Permission); err != nil {
		return nil, err
	}
	return map[string]any{"id": in.ID, "permission": in.Permission, "granted": false}, nil
}

func (m *CurdModel) setPermissions(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in permissionSet
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.SetPermissions(ctx, actor(ctx), in.ID, in.Permissions)
}

func (m *CurdModel) setAdminModules(ctx context.Context, params rpc.Params, _ *http.Request) (any, error) {
	var in adminModules
	if err := params.Bind(&in); err != nil {
		return nil, err
	}
	return m.svc.SetAdminModules(ctx, actor(ctx), in.ID, in.Modules)
}

func actor(ctx context.Context) int64 {
	id, _ := rpc.CallerID(ctx)
	return id
}

package roles

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

type memRepo struct {
	mu    sync.Mutex
	roles map[int64]Role
	next  int64
}

func newMemRepo(roles ...Role) *memRepo {
	r := &memRepo{roles: map[int64]Role{}}
	for _, role := range roles {
		r.roles[role.ID] = role
		if role.ID > r.next {
			r.next = role.ID
		}
	}
	return r
}

func (r *memRepo) sorted(filter ListFilter) []Role {
	var out []Role
	for _, role := range r.roles {
		if filter.Search != "" && !strings.Contains(role.Code, filter.Search) && !strings.Contains(role.Name, filter.Search) {
			continue
		}
		if filter.Active != nil && role.Active != *filter.Active {
			continue
		}
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *memRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Role, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(filter)
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (r *memRepo) Options(ctx context.Context, filter OptionsFilter) ([]Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Option
	for _, role := range r.sorted(ListFilter{Search: filter.Search}) {
		if role.Active && len(out) < filter.Limit {
			out = append(out, Option{Value: role.ID, Label: role.Name, Code: role.Code})
		}
	}
	return out, nil
}

func (r *memRepo) Get(ctx context.Context, id int64) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (r *memRepo) Create(ctx context.Context, in CreateInput) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Code == in.Code {
			return Role{}, ErrDuplicateCode
		}
	}
	r.next++
	role := Role{ID: r.next, Code: in.Code, Name: in.Name, Description: in.Description, Active: true, AdminModules: map[string]bool{}}
	r.roles[role.ID] = role
	return role, nil
}

func (r *memRepo) Update(ctx context.Context, in UpdateInput) (Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[in.ID]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Name, role.Description = in.Name, in.Description
	r.roles[in.ID] = role
	return role, nil
}

type writerCall struct {
	op    string
	actor int64
	role  int64
	arg   any
}

type recordingWriter struct {
	calls []writerCall
	err   error
	repo  *memRepo
}

func (w *recordingWriter) add(op string, actor, role int64, arg any) error {
	w.calls = append(w.calls, writerCall{op: op, actor: actor, role: role, arg: arg})
	return w.err
}

func (w *recordingWriter) GrantRolePermission(ctx context.Context, actorID, roleID int64, key string) error {
	return w.add("grant", actorID, roleID, key)
}

func (w *recordingWriter) RevokeRolePermission(ctx context.Context, actorID, roleID int64, key string) error {
	return w.add("revoke", actorID, roleID, key)
}

func (w *recordingWriter) SetRolePermissions(ctx context.Context, actorID, roleID int64, keys []string) error {
	return w.add("set", actorID, roleID, keys)
}

func (w *recordingWriter) SetRoleActive(ctx context.Context, actorID, roleID int64, active bool) error {
	if err := w.add("active", actorID, roleID, active); err != nil {
		return err
	}
	if w.repo != nil {
		role := w.repo.roles[roleID]
		role.Active = active
		w.repo.roles[roleID] = role
	}
	return nil
}

func (w *recordingWriter) SetRoleAdminModules(ctx context.Context, actorID, roleID int64, modules map[string]bool) error {
	return w.add("admin", actorID, roleID, modules)
}

func (w *recordingWriter) EnsureRoleMutable(ctx context.Context, roleID int64) error {
	role, ok := w.repo.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	if role.IsSystem {
		return rbac.ErrSystemRole
	}
	return nil
}

func (w *recordingWriter) IsReservedCode(code string) bool {
	return code == "admin" || code == "super_admin"
}

func (w *recordingWriter) InvalidateRole(ctx context.Context, roleID int64) (int, error) {
	return 0, w.add("invalidate", 0, roleID, nil)
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func fixture() (*Service, *memRepo, *recordingWriter, *recordingAudit) {
	repo := newMemRepo(
		Role{ID: 1, Code: "editor", Name: "Editor", Active: true},
		Role{ID: 2, Code: "viewer", Name: "Viewer", Active: true},
		Role{ID: 3, Code: "archived", Name: "Archived"},
		Role{ID: 4, Code: "super_admin", Name: "Super Admin", IsSystem: true, Active: true},
	)
	writer := &recordingWriter{repo: repo}
	audit := &recordingAudit{}
	return NewService(repo, writer, audit, nil), repo, writer, audit
}

func callerCtx(id string) context.Context {
	return shared.ContextWithIdentity(context.Background(), id)
}

func TestServiceListPaginates(t *testing.T) {
	svc, _, _, _ := fixture()

	res, err := svc.List(context.Background(), ListFilter{Page: 2, PerPage: 3})
	require.NoError(t, err)
	assert.Equal(t, shared.Pagination{Page: 2, PerPage: 3, Total: 4, TotalPages: 2}, res.Pagination)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "viewer", res.Items[0].Code)

	inactive := false
	res, err = svc.List(context.Background(), ListFilter{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "archived", res.Items[0].Code)

	res, err = svc.List(context.Background(), ListFilter{Search: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestServiceOptionsSkipsInactive(t *testing.T) {
	svc, _, _, _ := fixture()

	opts, err := svc.Options(context.Background(), OptionsFilter{})
	require.NoError(t, err)
	codes := make([]string, 0, len(opts))
	for _, o := range opts {
		codes = append(codes, o.Code)
	}
	assert.Equal(t, []string{"editor", "super_admin", "viewer"}, codes)
}

func TestServiceCreateNormalizesAndAudits(t *testing.T) {
	svc, _, _, audit := fixture()

	role, err := svc.Create(context.Background(), 9, CreateInput{Code: "  Auditor ", Name: " Auditor "})
	require.NoError(t, err)
	assert.Equal(t, "auditor", role.Code)
	assert.Equal(t, "Auditor", role.Name)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "roles.create", audit.logs[0].Action)
	assert.Equal(t, int64(9), audit.logs[0].ActorID)

	_, err = svc.Create(context.Background(), 9, CreateInput{Code: "EDITOR", Name: "dup"})
	require.ErrorIs(t, err, ErrDuplicateCode)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Len(t, audit.logs, 1)
}

func TestServiceUpdateUnknownRole(t *testing.T) {
	svc, _, _, audit := fixture()

	_, err := svc.Update(context.Background(), 1, UpdateInput{ID: 99, Name: "x"})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, audit.logs)
}

func TestServiceCreateRejectsReservedCode(t *testing.T) {
	svc, repo, _, audit := fixture()

	_, err := svc.Create(context.Background(), 9, CreateInput{Code: " ADMIN ", Name: "Shadow admin"})
	require.ErrorIs(t, err, ErrReservedCode)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Len(t, repo.roles, 4)
	assert.Empty(t, audit.logs)
}

func TestServiceUpdateRejectsSystemRole(t *testing.T) {
	svc, repo, writer, audit := fixture()

	_, err := svc.Update(context.Background(), 9, UpdateInput{ID: 4, Name: "Hijacked"})
	require.ErrorIs(t, err, rbac.ErrSystemRole)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, "Super Admin", repo.roles[4].Name)
	assert.Empty(t, writer.calls)
	assert.Empty(t, audit.logs)
}

func TestServiceUpdateInvalidatesMembers(t *testing.T) {
	svc, _, writer, audit := fixture()

	role, err := svc.Update(context.Background(), 9, UpdateInput{ID: 1, Name: " Senior Editor "})
	require.NoError(t, err)
	assert.Equal(t, "Senior Editor", role.Name)
	require.Len(t, writer.calls, 1)
	assert.Equal(t, writerCall{op: "invalidate", role: 1}, writer.calls[0])
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "roles.update", audit.logs[0].Action)
}

func TestServiceDelegatesLinkWrites(t *testing.T) {
	svc, _, writer, _ := fixture()
	ctx := context.Background()

	require.NoError(t, svc.GrantPermission(ctx, 5, 1, "doc.write"))
	require.NoError(t, svc.RevokePermission(ctx, 5, 1, "doc.read"))
	_, err := svc.SetPermissions(ctx, 5, 1, []string{"doc.read"})
	require.NoError(t, err)
	_, err = svc.SetAdminModules(ctx, 5, 2, map[string]bool{"sales": true})
	require.NoError(t, err)
	role, err := svc.SetActive(ctx, 5, 3, true)
	require.NoError(t, err)
	assert.True(t, role.Active)

	ops := make([]string, 0, len(writer.calls))
	for _, c := range writer.calls {
		ops = append(ops, c.op)
		assert.Equal(t, int64(5), c.actor)
	}
	assert.Equal(t, []string{"grant", "revoke", "set", "admin", "active"}, ops)
}

func TestServiceWriterErrorSurfaces(t *testing.T) {
	svc, _, writer, _ := fixture()
	writer.err = errors.New("tx aborted")

	_, err := svc.SetPermissions(context.Background(), 5, 1, nil)
	require.EqualError(t, err, "tx aborted")
}

func TestCurdModelBindsParams(t *testing.T) {
	svc, _, writer, _ := fixture()
	m := NewCurdModel(svc)
	ctx := callerCtx("42")

	out, err := m.Methods()["grantPermission"](ctx, rpc.NewParams(map[string]any{"id": 1, "permission": "doc.write"}), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(1), "permission": "doc.write", "granted": true}, out)
	require.Len(t, writer.calls, 1)
	assert.Equal(t, writerCall{op: "grant", actor: 42, role: 1, arg: "doc.write"}, writer.calls[0])

	_, err = m.Methods()["grantPermission"](ctx, rpc.NewParams(map[string]any{"id": 1}), nil)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	_, err = m.Methods()["setActive"](ctx, rpc.NewParams(map[string]any{"id": 1}), nil)
	require.ErrorAs(t, err, &verrs)

	_, err = m.Methods()["create"](ctx, rpc.NewParams(map[string]any{"code": []any{1}}), nil)
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpc.CodeInvalidParams, rpcErr.Code)
}

func TestModelsDeclareRules(t *testing.T) {
	svc, _, _, _ := fixture()

	list := NewListModel(svc)
	assert.Equal(t, []string{shared.PermRolesView}, list.PermissionRequiredForMethod("getData").Permissions)

	curd := NewCurdModel(svc)
	for name := range curd.Methods() {
		rule := curd.PermissionRequiredForMethod(name)
		require.NotNil(t, rule, name)
		assert.True(t, rule.Required, name)
	}
	assert.Equal(t, []string{shared.PermRolesEdit}, curd.PermissionRequiredForMethod("setPermissions").Permissions)
	assert.Equal(t, []string{shared.PermRolesView}, curd.PermissionRequiredForMethod("get").Permissions)

	var _ rpc.PermissionRuler = NewDropdownModel(svc)
}

func TestManifestRequiresDependencies(t *testing.T) {
	m := Manifest()
	assert.Equal(t, "roles", m.Code)
	assert.Len(t, m.Models, 3)
	for key, f := range m.Models {
		_, err := f(module.Deps{})
		require.Error(t, err, key)
	}
}

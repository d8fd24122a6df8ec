package admin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/odyssey-erp/odyssey-rpc/internal/mocks"
	"github.com/odyssey-erp/odyssey-rpc/internal/module"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac"
	"github.com/odyssey-erp/odyssey-rpc/internal/rbac/admin"
	"github.com/odyssey-erp/odyssey-rpc/internal/rpc"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

func newEngine(t *testing.T) (*rbac.Service, *mocks.MockRepository, *miniredis.Miniredis) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return rbac.NewService(repo, cache.NewStore(client, nil, nil)), repo, mr
}

func call(t *testing.T, m rpc.Model, ctx context.Context, method string, params any) (any, error) {
	t.Helper()
	h, ok := m.Methods()[method]
	require.True(t, ok, method)
	return h(ctx, rpc.NewParams(params), nil)
}

func TestPermissionListPassesFilter(t *testing.T) {
	svc, repo, _ := newEngine(t)
	repo.EXPECT().
		ListPermissions(gomock.Any(), rbac.PermissionFilter{Module: "sales", Search: "order"}).
		Return([]rbac.Permission{{ID: 12, Key: "sales.order.approve", Module: "sales", Active: true}}, nil)

	out, err := call(t, admin.NewPermissionList(svc), context.Background(), "getData", map[string]any{"module": " Sales ", "search": "order"})
	require.NoError(t, err)
	res := out.(map[string]any)
	assert.Equal(t, 1, res["total"])
	assert.Len(t, res["items"], 1)
}

func TestPermissionDropdownForcesActiveOnly(t *testing.T) {
	svc, repo, _ := newEngine(t)
	repo.EXPECT().
		ListPermissions(gomock.Any(), rbac.PermissionFilter{ActiveOnly: true}).
		Return([]rbac.Permission{
			{Key: "doc.read", Module: "doc", Description: "Read documents"},
			{Key: "doc.write", Module: "doc"},
		}, nil)

	out, err := call(t, admin.NewPermissionDropdown(svc), context.Background(), "getOptions", nil)
	require.NoError(t, err)
	assert.Equal(t, []admin.Option{
		{Value: "doc.read", Label: "Read documents", Module: "doc"},
		{Value: "doc.write", Label: "doc.write", Module: "doc"},
	}, out)
}

func TestGetMyPermissionsNeedsIdentity(t *testing.T) {
	svc, _, _ := newEngine(t)
	m := admin.NewCacheAdmin(svc)

	assert.Nil(t, m.PermissionRequiredForMethod("getMyPermissions"))
	_, err := call(t, m, context.Background(), "getMyPermissions", nil)
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpc.CodeAuthRequired, rpcErr.Code)
}

func TestGetMyPermissionsUsesCache(t *testing.T) {
	svc, repo, mr := newEngine(t)
	repo.EXPECT().ActiveRolesForUser(gomock.Any(), int64(7)).
		Return([]rbac.Role{{ID: 1, Code: "editor", Name: "Editor", Active: true}}, nil).Times(2)
	repo.EXPECT().ActivePermissionKeysForRoles(gomock.Any(), []int64{1}).Return([]string{"doc.write"}, nil).Times(2)
	repo.EXPECT().ActiveOverrideKeysForUser(gomock.Any(), int64(7)).Return(nil, nil).Times(2)

	m := admin.NewCacheAdmin(svc)
	ctx := shared.ContextWithIdentity(context.Background(), "7")

	out, err := call(t, m, ctx, "getMyPermissions", nil)
	require.NoError(t, err)
	assert.True(t, out.(rbac.EffectivePermissions).Has("doc.write"))
	assert.True(t, mr.Exists(rbac.PermissionCachePrefix+"7"))

	_, err = call(t, m, ctx, "getMyPermissions", nil)
	require.NoError(t, err)

	_, err = call(t, m, ctx, "getMyPermissions", map[string]any{"forceRefresh": true})
	require.NoError(t, err)
}

func TestInvalidationMethods(t *testing.T) {
	svc, repo, mr := newEngine(t)
	for _, id := range []string{"5", "6", "9"} {
		require.NoError(t, mr.Set(rbac.PermissionCachePrefix+id, `{}`))
	}
	repo.EXPECT().ActiveUserIDsForRole(gomock.Any(), int64(3)).Return([]int64{5, 6}, nil)
	repo.EXPECT().ActiveUserIDsForRole(gomock.Any(), int64(4)).Return(nil, errors.New("db down"))

	m := admin.NewCacheAdmin(svc)
	ctx := shared.ContextWithIdentity(context.Background(), "1")

	out, err := call(t, m, ctx, "invalidateRole", map[string]any{"roleId": 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"roleId": int64(3), "removed": 2}, out)
	assert.True(t, mr.Exists(rbac.PermissionCachePrefix+"9"))

	_, err = call(t, m, ctx, "invalidateRole", map[string]any{"roleId": 4})
	require.ErrorContains(t, err, "db down")

	out, err = call(t, m, ctx, "invalidateUser", map[string]any{"userId": 9})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"userId": int64(9), "removed": true}, out)

	require.NoError(t, mr.Set(rbac.PermissionCachePrefix+"11", `{}`))
	require.NoError(t, mr.Set("other:key", "x"))
	out, err = call(t, m, ctx, "purgeCache", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"removed": 1}, out)
	assert.True(t, mr.Exists("other:key"))

	_, err = call(t, m, ctx, "invalidateUser", map[string]any{})
	require.Error(t, err)
}

func TestCacheAdminRules(t *testing.T) {
	svc, _, _ := newEngine(t)
	m := admin.NewCacheAdmin(svc)
	for _, name := range []string{"invalidateUser", "invalidateRole", "purgeCache"} {
		rule := m.PermissionRequiredForMethod(name)
		require.NotNil(t, rule, name)
		assert.Equal(t, []string{shared.PermRBACCacheManage}, rule.Permissions)
	}
}

func TestManifest(t *testing.T) {
	svc, _, _ := newEngine(t)
	registry, err := module.NewRegistry(module.Deps{Permissions: svc}, admin.Manifest())
	require.NoError(t, err)
	assert.Equal(t, []string{"permissions.dropdown", "permissions.list", "rbac.curd"}, registry.Keys())

	_, err = module.NewRegistry(module.Deps{}, admin.Manifest())
	require.Error(t, err)
}

package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

type stubAuthorizer struct {
	granted bool
	err     error
	calls   int
	keys    []string
}

func (s *stubAuthorizer) HasAnyPermission(ctx context.Context, userID int64, keys []string) (bool, error) {
	s.calls++
	s.keys = keys
	return s.granted, s.err
}

func (s *stubAuthorizer) HasAllPermissions(ctx context.Context, userID int64, keys []string) (bool, error) {
	s.calls++
	s.keys = keys
	return s.granted, s.err
}

type capturePublisher struct {
	kinds []string
}

func (c *capturePublisher) Publish(ctx context.Context, key string, payload any) error {
	c.kinds = append(c.kinds, key)
	return nil
}

func serve(t *testing.T, guard func(http.Handler) http.Handler, identity string) *httptest.ResponseRecorder {
	t.Helper()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/rbac/cache/purge", nil)
	if identity != "" {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), identity))
	}
	rr := httptest.NewRecorder()
	guard(ok).ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareRequireAll(t *testing.T) {
	cases := []struct {
		name     string
		identity string
		perms    []string
		auth     *stubAuthorizer
		status   int
		event    string
	}{
		{name: "granted", identity: "7", perms: []string{"RBAC.Cache.Manage"}, auth: &stubAuthorizer{granted: true}, status: http.StatusNoContent},
		{name: "denied", identity: "7", perms: []string{"rbac.cache.manage"}, auth: &stubAuthorizer{}, status: http.StatusForbidden, event: shared.SecurityPermissionDenied},
		{name: "anonymous", perms: []string{"rbac.cache.manage"}, auth: &stubAuthorizer{granted: true}, status: http.StatusUnauthorized, event: shared.SecurityAuthRequired},
		{name: "bad identity", identity: "abc", perms: []string{"rbac.cache.manage"}, auth: &stubAuthorizer{granted: true}, status: http.StatusUnauthorized, event: shared.SecurityAuthRequired},
		{name: "empty guard", identity: "7", auth: &stubAuthorizer{granted: true}, status: http.StatusForbidden, event: shared.SecurityMisconfigured},
		{name: "lookup failure", identity: "7", perms: []string{"rbac.cache.manage"}, auth: &stubAuthorizer{err: errors.New("boom")}, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &capturePublisher{}
			mw := Middleware{Service: tc.auth, Security: shared.NewSecurityLog(nil, pub)}
			rr := serve(t, mw.RequireAll(tc.perms...), tc.identity)
			assert.Equal(t, tc.status, rr.Code)
			if tc.event == "" {
				assert.Empty(t, pub.kinds)
			} else {
				assert.Equal(t, []string{tc.event}, pub.kinds)
			}
		})
	}
}

func TestMiddlewareNormalizesKeys(t *testing.T) {
	auth := &stubAuthorizer{granted: true}
	mw := Middleware{Service: auth}
	rr := serve(t, mw.RequireAny(" Users.View ", "users.view", ""), "3")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"users.view"}, auth.keys)
	assert.Equal(t, 1, auth.calls)
}

func TestMiddlewareRequireIdentity(t *testing.T) {
	mw := Middleware{}
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw.RequireIdentity(), "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw.RequireIdentity(), "0").Code)
	assert.Equal(t, http.StatusNoContent, serve(t, mw.RequireIdentity(), "12").Code)
}

func TestMiddlewareAgainstService(t *testing.T) {
	svc, _ := newTestService(t, fixtureRepo())
	mw := Middleware{Service: svc}

	assert.Equal(t, http.StatusNoContent, serve(t, mw.RequireAll("doc.write"), "101").Code)
	assert.Equal(t, http.StatusForbidden, serve(t, mw.RequireAll("doc.write", "doc.read"), "101").Code)
	assert.Equal(t, http.StatusNoContent, serve(t, mw.RequireAny("doc.write", "doc.read"), "103").Code)
}

package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// Authorizer answers permission questions for a user.
type Authorizer interface {
	HasAnyPermission(ctx context.Context, userID int64, keys []string) (bool, error)
	HasAllPermissions(ctx context.Context, userID int64, keys []string) (bool, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service  Authorizer
	Logger   *slog.Logger
	Security *shared.SecurityLog
}

// RequireIdentity only checks that the caller is known.
func (m Middleware) RequireIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentUserID(r); !ok {
				m.refuse(w, r, shared.SecurityAuthRequired, nil, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, "rbac require any", func(ctx context.Context, userID int64, keys []string) (bool, error) {
		return m.Service.HasAnyPermission(ctx, userID, keys)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, "rbac require all", func(ctx context.Context, userID int64, keys []string) (bool, error) {
		return m.Service.HasAllPermissions(ctx, userID, keys)
	})
}

func (m Middleware) require(perms []string, op string, check func(context.Context, int64, []string) (bool, error)) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				m.refuse(w, r, shared.SecurityAuthRequired, normalized, http.StatusUnauthorized)
				return
			}
			// A guard without permissions is a misconfiguration and never grants access.
			if len(normalized) == 0 {
				m.refuse(w, r, shared.SecurityMisconfigured, nil, http.StatusForbidden)
				return
			}
			granted, err := check(r.Context(), userID, normalized)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error(op, slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if granted {
				next.ServeHTTP(w, r)
				return
			}
			m.refuse(w, r, shared.SecurityPermissionDenied, normalized, http.StatusForbidden)
		})
	}
}

func (m Middleware) refuse(w http.ResponseWriter, r *http.Request, kind string, required []string, status int) {
	m.Security.Record(r.Context(), shared.SecurityEvent{
		Kind:     kind,
		Identity: shared.IdentityFromContext(r.Context()),
		Method:   r.Method,
		Path:     r.URL.Path,
		Required: required,
	})
	http.Error(w, http.StatusText(status), status)
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	raw := shared.IdentityFromContext(r.Context())
	if raw == "" {
		return 0, false
	}
	id, ok := shared.ParseUserID(raw)
	if !ok {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

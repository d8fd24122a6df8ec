package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rpc/internal/shared"
)

// ServiceSource yields the permission service, bootstrapping it if needed.
type ServiceSource func(ctx context.Context) (*Service, error)

// PermissionsHandler exposes the caller's permissions, the catalog and cache
// maintenance over plain HTTP.
type PermissionsHandler struct {
	logger *slog.Logger
	source ServiceSource
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, source ServiceSource, rbac Middleware) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, source: source, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireIdentity()).Get("/me/permissions", h.myPermissions)
	r.With(h.rbac.RequireAny(shared.PermPermissionsView)).Get("/permissions", h.listPermissions)
	r.With(h.rbac.RequireAll(shared.PermRBACCacheManage)).Post("/admin/rbac/cache/purge", h.purgeCache)
}

func (h *PermissionsHandler) service(w http.ResponseWriter, r *http.Request) (*Service, bool) {
	svc, err := h.source(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "permission service unavailable", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "")
		return nil, false
	}
	return svc, true
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	userID, _ := shared.ParseUserID(shared.IdentityFromContext(r.Context()))
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	perms, err := svc.GetEffectivePermissions(r.Context(), userID, refresh)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "resolve permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	active, _ := strconv.ParseBool(q.Get("active"))
	perms, err := svc.ListPermissions(r.Context(), PermissionFilter{Module: q.Get("module"), Search: q.Get("q"), ActiveOnly: active})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": perms})
}

// purgeCache drops one user's entry (?user=), one role's members (?role=) or
// everything.
func (h *PermissionsHandler) purgeCache(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	switch {
	case q.Get("user") != "":
		id, ok := shared.ParseUserID(q.Get("user"))
		if !ok {
			httpx.RespondError(w, ErrInvalidInput)
			return
		}
		removed := 0
		if svc.InvalidateUser(r.Context(), id) {
			removed = 1
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"scope": "user", "id": id, "removed": removed})
	case q.Get("role") != "":
		id, err := strconv.ParseInt(q.Get("role"), 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, ErrInvalidInput)
			return
		}
		removed, err := svc.InvalidateRole(r.Context(), id)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "invalidate role", slog.Int64("role_id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"scope": "role", "id": id, "removed": removed})
	default:
		httpx.JSON(w, http.StatusOK, map[string]any{"scope": "all", "removed": svc.InvalidateAll(r.Context())})
	}
}

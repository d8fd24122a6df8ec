package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-rpc/internal/observability"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
)

// RouteMounter registers a group of routes.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger    *slog.Logger
	Config    *Config
	Metrics   *observability.Metrics
	RPC       http.Handler
	PublicRPC http.Handler
	// Ready reports whether the runtime has bootstrapped.
	Ready       func() bool
	Permissions RouteMounter
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil && !params.Ready() {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.RPC != nil {
			r.Handle("/rpc", params.RPC)
		}
		if params.PublicRPC != nil {
			r.Handle("/public/rpc", params.PublicRPC)
		}
		if params.Permissions != nil {
			params.Permissions.MountRoutes(r)
		}
	})

	return r
}

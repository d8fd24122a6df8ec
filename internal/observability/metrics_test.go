package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveRPC("roles.list.getData", 0, 12*time.Millisecond)

	body := scrape(t, metrics)
	if !strings.Contains(body, "odyssey_rpc_calls_total") {
		t.Fatalf("expected body to contain odyssey_rpc_calls_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestMetricsRecordRPCAndCache(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveRPC("users.curd.assignRole", -32003, time.Millisecond)
	metrics.ObserveRPC("users.curd.assignRole", -32003, time.Millisecond)
	metrics.ObserveCache("rbac:perm:", "hit")
	metrics.ObserveCache("rbac:perm:", "error")

	body := scrape(t, metrics)
	for _, want := range []string{
		`odyssey_rpc_calls_total{code="-32003",method="users.curd.assignRole"} 2`,
		`odyssey_rpc_call_duration_seconds_count{method="users.curd.assignRole"} 2`,
		`odyssey_cache_operations_total{outcome="hit",prefix="rbac:perm:"} 1`,
		`odyssey_cache_operations_total{outcome="error",prefix="rbac:perm:"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveRPC("x.list.y", 0, time.Millisecond)
	metrics.ObserveCache("p", "miss")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}

package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/skillforge/user-service/internal/jobs"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestHandlerExposesJobAndRuntimeMetrics(t *testing.T) {
	metrics := NewMetrics()
	require.NoError(t, jobmetrics.NewMetrics(metrics.Registerer()).Start("instructor:stats:refresh").Done(nil))

	body := scrape(t, metrics)
	assert.Contains(t, body, `usersvc_jobs_total{outcome="success",task="instructor:stats:refresh"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	metrics := NewMetrics()

	var inFlight float64
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight = testutil.ToFloat64(metrics.inFlight)
		w.WriteHeader(http.StatusConflict)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/v1/role-assignments/{assignmentID}")
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/role-assignments/abc", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	assert.Equal(t, 1.0, inFlight)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.inFlight))

	body := scrape(t, metrics)
	assert.Contains(t, body, `usersvc_http_requests_total{code="409",method="PATCH",route="/api/v1/role-assignments/{assignmentID}"} 1`)
	assert.Contains(t, body, `usersvc_http_request_duration_seconds_bucket{route="/api/v1/role-assignments/{assignmentID}"`)
}

func TestNilMetricsHandlerIsUnavailable(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/crawler-api/internal/http/handlers"
	"github.com/yungbote/crawler-api/internal/observability"
)

func TestRouterHealthAndTraceHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{HealthHandler: httpH.NewHealthHandler(nil)})

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("request id echo: want=req-1 got=%q", got)
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("trace id header missing")
	}
}

func TestRouterMetricsSkipProbePaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := NewRouter(RouterConfig{HealthHandler: httpH.NewHealthHandler(nil), Metrics: m})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/scans/", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: code=%d", rec.Code)
	}
	body := rec.Body.String()
	want := `crawler_api_requests_total{method="GET",route="unmatched",status="404"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics body missing %q:\n%s", want, body)
	}
	for _, probe := range probePaths {
		if strings.Contains(body, `route="`+probe+`"`) {
			t.Fatalf("probe path %s was counted:\n%s", probe, body)
		}
	}
}

func TestRouterWithoutScanHandlerHasNoScanRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 without scan handler, got %d", rec.Code)
	}
}

package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestPrometheusMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(PrometheusMiddleware(m))
	r.GET("/v1/subjects/:id/grants", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(PrometheusHandler(reg)))

	for _, id := range []string{"u1", "u2", "u3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/subjects/"+id+"/grants", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("200", "GET", "/v1/subjects/:id/grants")); got != 3 {
		t.Fatalf("expected 3 requests on the template, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("404", "GET", "unmatched")); got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics endpoint missing counter: %s", w.Body.String())
	}
}

func TestDecisionMetrics(t *testing.T) {
	m := NewDecisionMetrics(prometheus.NewRegistry())
	m.ObserveDecision("todos", "view", true, time.Millisecond)
	m.ObserveDecision("todos", "view", false, time.Millisecond)
	m.ObserveDecision("todos", "view", false, time.Millisecond)
	m.ObserveDangling("GONE")

	if got := testutil.ToFloat64(m.Decisions("todos", "view", false)); got != 2 {
		t.Fatalf("expected 2 denials, got %v", got)
	}
	if got := testutil.ToFloat64(m.Dangling("GONE")); got != 1 {
		t.Fatalf("expected 1 dangling reference, got %v", got)
	}

	var disabled *DecisionMetrics
	disabled.ObserveDecision("todos", "view", true, time.Millisecond)
	disabled.ObserveDangling("GONE")
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracerConfig{ServiceName: "policysvc"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

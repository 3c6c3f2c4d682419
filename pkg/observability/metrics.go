package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetrics returns the HTTP metrics registered with reg. A nil reg means
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"code", "method", "path"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of latencies for HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code", "method", "path"},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration)
	return m
}

// Metrics holds the HTTP Prometheus metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// PrometheusMiddleware returns a Gin middleware that records Prometheus metrics for HTTP requests.
// The path label is the matched route template so that instance ids in the URL
// do not explode label cardinality.
func PrometheusMiddleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		metrics.RequestsTotal.WithLabelValues(statusCode, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(statusCode, method, path).Observe(time.Since(start).Seconds())
	}
}

// PrometheusHandler returns an http.Handler serving metrics gathered by g. A nil
// g means prometheus.DefaultGatherer.
func PrometheusHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DecisionMetrics records access decisions made by the policy engine.
type DecisionMetrics struct {
	decisions *prometheus.CounterVec
	dangling  *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewDecisionMetrics creates and registers decision metrics with reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewDecisionMetrics(reg prometheus.Registerer) *DecisionMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DecisionMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permitkit",
				Subsystem: "policy",
				Name:      "decisions_total",
				Help:      "Total number of access decisions by resource type, action and result.",
			},
			[]string{"resource", "action", "result"},
		),
		dangling: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "permitkit",
				Subsystem: "policy",
				Name:      "dangling_references_total",
				Help:      "Grants that referenced a policy missing from the registry.",
			},
			[]string{"policy"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "permitkit",
				Subsystem: "policy",
				Name:      "decision_duration_seconds",
				Help:      "Time spent making a single access decision.",
				Buckets:   []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01},
			},
		),
	}
	reg.MustRegister(m.decisions, m.dangling, m.duration)
	return m
}

// ObserveDecision records the outcome of one decision.
func (m *DecisionMetrics) ObserveDecision(resource, action string, allowed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Decisions(resource, action, allowed).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveDangling records a grant referring to an unregistered policy.
func (m *DecisionMetrics) ObserveDangling(policy string) {
	if m == nil {
		return
	}
	m.Dangling(policy).Inc()
}

// Decisions returns the decision counter for the given labels.
func (m *DecisionMetrics) Decisions(resource, action string, allowed bool) prometheus.Counter {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	return m.decisions.WithLabelValues(resource, action, result)
}

// Dangling returns the dangling reference counter for policy.
func (m *DecisionMetrics) Dangling(policy string) prometheus.Counter {
	return m.dangling.WithLabelValues(policy)
}

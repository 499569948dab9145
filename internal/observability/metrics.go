package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	queryTotal    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	filterTerms prometheus.Histogram

	rateLimitHits *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queryfilter_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "queryfilter_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		queryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queryfilter_db_queries_total",
				Help: "Total number of executed plan queries",
			},
			[]string{"backend", "operation", "status"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "queryfilter_db_query_duration_seconds",
				Help:    "Plan query latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"backend", "operation"},
		),
		filterTerms: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "queryfilter_filter_terms",
				Help:    "Number of filter terms per request",
				Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
			},
		),
		rateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queryfilter_rate_limit_hits_total",
				Help: "Total number of rejected rate limited requests",
			},
			[]string{"limiter"},
		),
	}
}

// RecordHTTPRequest records a served request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	path = normalizePath(path)
	m.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordQuery records one executor call
func (m *Metrics) RecordQuery(backend, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.queryTotal.WithLabelValues(backend, operation, status).Inc()
	m.queryDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// ObserveFilterTerms records how many terms a request's filters held
func (m *Metrics) ObserveFilterTerms(n int) {
	if m == nil {
		return
	}
	m.filterTerms.Observe(float64(n))
}

// RecordRateLimitHit records a request rejected by a rate limiter
func (m *Metrics) RecordRateLimitHit(limiter string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(limiter).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}

// normalizePath keeps label cardinality bounded
func normalizePath(path string) string {
	if len(path) > 50 {
		return "long_path"
	}
	return path
}


// Package metrics exposes Prometheus collectors for HTTP traffic, document
// ingestion, and the telemetry queue. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/shelf/pkg/middleware"
)

// UnmatchedRoute labels requests no route pattern claimed.
const UnmatchedRoute = "unmatched"

// Metrics holds the service collectors and the registry they are registered on.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ingestTotal     *prometheus.CounterVec
	uploadSize      prometheus.Histogram
	flowsTotal      *prometheus.CounterVec
}

// New creates Metrics on a fresh registry. Metric names are prefixed with
// namespace. Go runtime and process collectors are included.
func New(namespace string) (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ingestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_total",
				Help:      "Document uploads by outcome.",
			},
			[]string{"outcome"},
		),
		uploadSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_size_bytes",
				Help:      "Size of accepted uploads.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		flowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "telemetry_flows_total",
				Help:      "Telemetry flow records by result.",
			},
			[]string{"result"},
		),
	}

	cs := []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.ingestTotal,
		m.uploadSize,
		m.flowsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests and observes latency labelled by the matched
// route pattern. It must be the innermost middleware in front of a ServeMux so
// the pattern the mux records on the request is visible after it returns.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := middleware.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			route := routeLabel(r.Pattern)
			m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status)).Inc()
			m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// ObserveIngest records the outcome of one upload.
func (m *Metrics) ObserveIngest(outcome string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(outcome).Inc()
}

// ObserveUploadSize records the size of an accepted upload.
func (m *Metrics) ObserveUploadSize(n int64) {
	if m == nil {
		return
	}
	m.uploadSize.Observe(float64(n))
}

// ObserveFlow records a telemetry queue event (queued, dropped, sent, failed).
func (m *Metrics) ObserveFlow(result string) {
	if m == nil {
		return
	}
	m.flowsTotal.WithLabelValues(result).Inc()
}

func routeLabel(pattern string) string {
	if pattern == "" {
		return UnmatchedRoute
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

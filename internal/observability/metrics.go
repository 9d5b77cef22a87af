package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the Prometheus collectors exposed by the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorTotal      *prometheus.CounterVec
	broadcastTotal  *prometheus.CounterVec
}

// NewMetrics registers core collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	errorTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_request_errors_total",
		Help: "Total number of requests rejected with a domain error",
	}, []string{"method", "path", "code"})

	broadcastTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_total",
		Help: "Realtime events fanned out to subscribers",
	}, []string{"event"})

	registry.MustRegister(
		requestTotal,
		requestDuration,
		errorTotal,
		broadcastTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		errorTotal:      errorTotal,
		broadcastTotal:  broadcastTotal,
	}
}

// RecordRequest increments counters for a completed request.
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments the error counter for a domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(method, path, code).Inc()
}

// RecordBroadcast increments the realtime fan-out counter.
func (m *Metrics) RecordBroadcast(event string) {
	if m == nil {
		return
	}
	m.broadcastTotal.WithLabelValues(event).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

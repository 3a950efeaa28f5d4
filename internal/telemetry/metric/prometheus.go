package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graphite"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Authentication
	AuthRequests  *prometheus.CounterVec
	DuplicateSIDs prometheus.Counter

	// Sessions
	SessionsCreated    prometheus.Counter
	SessionStoreErrors *prometheus.CounterVec

	// Connections
	TLSHandshakes     *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  *prometheus.CounterVec

	// HTTP
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every graphite metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		AuthRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_requests_total",
			Help:      "Requests to protected routes by authentication outcome",
		}, []string{"outcome"}),

		DuplicateSIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_duplicate_sid_total",
			Help:      "Requests that carried more than one sid cookie",
		}),

		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created",
		}),

		SessionStoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_store_errors_total",
			Help:      "Session store backend failures by operation",
		}, []string{"op"}),

		TLSHandshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tls_handshakes_total",
			Help:      "TLS handshakes by result",
		}, []string{"result"}),

		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being served",
		}),

		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections served by negotiated protocol",
		}, []string{"protocol"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewCollector(),
		r.AuthRequests,
		r.DuplicateSIDs,
		r.SessionsCreated,
		r.SessionStoreErrors,
		r.TLSHandshakes,
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.RequestDuration,
	)

	return r
}

// Registerer exposes the underlying registry for components that
// register their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the /metrics HTTP handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// RecordAuthOutcome counts one authentication decision.
func (r *Registry) RecordAuthOutcome(outcome string) {
	if r == nil {
		return
	}
	r.AuthRequests.WithLabelValues(outcome).Inc()
}

// IncDuplicateSID counts a request with several sid cookies.
func (r *Registry) IncDuplicateSID() {
	if r == nil {
		return
	}
	r.DuplicateSIDs.Inc()
}

// IncSessionCreated counts a created session.
func (r *Registry) IncSessionCreated() {
	if r == nil {
		return
	}
	r.SessionsCreated.Inc()
}

// RecordStoreError counts a session store failure for op ("create", "get", ...).
func (r *Registry) RecordStoreError(op string) {
	if r == nil {
		return
	}
	r.SessionStoreErrors.WithLabelValues(op).Inc()
}

// RecordHandshake counts a TLS handshake result ("ok", "failed").
func (r *Registry) RecordHandshake(result string) {
	if r == nil {
		return
	}
	r.TLSHandshakes.WithLabelValues(result).Inc()
}

// ConnectionOpened marks a connection as served with protocol.
func (r *Registry) ConnectionOpened(protocol string) {
	if r == nil {
		return
	}
	r.ConnectionsActive.Inc()
	r.ConnectionsTotal.WithLabelValues(protocol).Inc()
}

// ConnectionClosed marks a served connection as finished.
func (r *Registry) ConnectionClosed() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Dec()
}

// ObserveRequestDuration records one HTTP request latency.
func (r *Registry) ObserveRequestDuration(method, status string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(method, status).Observe(seconds)
}

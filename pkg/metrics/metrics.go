// Package metrics defines the Prometheus collectors used by the router
// service and exposes an HTTP handler for scraping. Observe helpers are safe
// to call on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RoutesTotal          *prometheus.CounterVec
	RouteLatency         *prometheus.HistogramVec
	StageLatency         *prometheus.HistogramVec
	StageOutcomes        *prometheus.CounterVec
	ClassifierDecisions  *prometheus.CounterVec
	LiveCacheLookups     *prometheus.CounterVec
	LiveFetches          *prometheus.CounterVec
	LiveCoalesced        prometheus.Counter
	IndexDocuments       *prometheus.GaugeVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RoutesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "router_routes_total",
				Help: "Routed queries by intent and final provenance.",
			},
			[]string{"intent", "provenance"},
		),
		RouteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "router_route_latency_seconds",
				Help:    "End-to-end route latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"provenance"},
		),
		StageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "router_stage_latency_seconds",
				Help:    "Latency of each routing stage in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 1, 2},
			},
			[]string{"stage"},
		),
		StageOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "router_stage_outcomes_total",
				Help: "Stage outcomes (hit, empty, error, timeout, skipped, stale).",
			},
			[]string{"stage", "outcome"},
		),
		ClassifierDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classifier_decisions_total",
				Help: "Intent decisions by intent and deciding signal (rules, exemplar, default).",
			},
			[]string{"intent", "source"},
		),
		LiveCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "live_cache_lookups_total",
				Help: "Live cache lookups by layer (l1, l2) and result (hit, miss, expired, corrupt).",
			},
			[]string{"layer", "result"},
		),
		LiveFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "live_fetches_total",
				Help: "Upstream live fetches by result (ok, timeout, unavailable).",
			},
			[]string{"result"},
		),
		LiveCoalesced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "live_fetches_coalesced_total",
				Help: "Callers that shared an in-flight live fetch instead of issuing their own.",
			},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Documents loaded per domain.",
			},
			[]string{"domain"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RoutesTotal,
		m.RouteLatency,
		m.StageLatency,
		m.StageOutcomes,
		m.ClassifierDecisions,
		m.LiveCacheLookups,
		m.LiveFetches,
		m.LiveCoalesced,
		m.IndexDocuments,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveRoute records one completed route.
func (m *Metrics) ObserveRoute(intent, provenance string, d time.Duration) {
	if m == nil {
		return
	}
	m.RoutesTotal.WithLabelValues(intent, provenance).Inc()
	m.RouteLatency.WithLabelValues(provenance).Observe(d.Seconds())
}

// ObserveStage records the latency and outcome of one routing stage.
func (m *Metrics) ObserveStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	m.StageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// ObserveClassification records which signal decided an intent.
func (m *Metrics) ObserveClassification(intent, source string) {
	if m == nil {
		return
	}
	m.ClassifierDecisions.WithLabelValues(intent, source).Inc()
}

// ObserveLiveCache records a lookup against one live cache layer.
func (m *Metrics) ObserveLiveCache(layer, result string) {
	if m == nil {
		return
	}
	m.LiveCacheLookups.WithLabelValues(layer, result).Inc()
}

// ObserveLiveFetch records an upstream fetch result.
func (m *Metrics) ObserveLiveFetch(result string) {
	if m == nil {
		return
	}
	m.LiveFetches.WithLabelValues(result).Inc()
}

// ObserveCoalesced counts a caller that joined an in-flight fetch.
func (m *Metrics) ObserveCoalesced() {
	if m == nil {
		return
	}
	m.LiveCoalesced.Inc()
}

// SetIndexDocuments publishes the loaded document count for a domain.
func (m *Metrics) SetIndexDocuments(domain string, n int) {
	if m == nil {
		return
	}
	m.IndexDocuments.WithLabelValues(domain).Set(float64(n))
}

// SetBreakerState publishes a circuit breaker state as its numeric code.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics defines the Prometheus collectors used by the route service
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	PlansTotal          *prometheus.CounterVec
	SearchDuration      *prometheus.HistogramVec
	SearchStops         prometheus.Histogram
	ProviderRequests    *prometheus.CounterVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
// Passing nil uses a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

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
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		PlansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "route_plans_total",
				Help: "Total route plans by strategy and result (ok, error, cached).",
			},
			[]string{"strategy", "result"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "route_search_duration_seconds",
				Help:    "Time spent ordering stops, excluding matrix acquisition.",
				Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"strategy"},
		),
		SearchStops: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "route_search_stops",
				Help:    "Number of stops per route search.",
				Buckets: []float64{2, 3, 4, 5, 6, 8, 10, 12, 16},
			},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routing_provider_requests_total",
				Help: "Outbound routing provider calls by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "route_cache_hits_total",
				Help: "Total number of route cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "route_cache_misses_total",
				Help: "Total number of route cache misses.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PlansTotal,
		m.SearchDuration,
		m.SearchStops,
		m.ProviderRequests,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveProvider counts one outbound provider call. Safe on a nil receiver.
func (m *Metrics) ObserveProvider(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
}

// ObservePlan counts one planning outcome. Safe on a nil receiver.
func (m *Metrics) ObservePlan(strategy, result string) {
	if m == nil {
		return
	}
	m.PlansTotal.WithLabelValues(strategy, result).Inc()
}

// ObserveSearch records the duration and size of one ordering pass. Safe on a nil receiver.
func (m *Metrics) ObserveSearch(strategy string, stops int, seconds float64) {
	if m == nil {
		return
	}
	m.SearchDuration.WithLabelValues(strategy).Observe(seconds)
	m.SearchStops.Observe(float64(stops))
}

// ObserveCache counts a route cache lookup. Safe on a nil receiver.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

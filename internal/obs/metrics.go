// Package obs holds the prometheus metrics for the caching and
// rate-limiting layers. A nil *Metrics is valid and records nothing,
// so tests and the worker can skip registration.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	cacheRequests      *prometheus.CounterVec
	rateLimitDecisions *prometheus.CounterVec
	upstreamRequests   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coinwatch_cache_requests_total",
		Help: "Cache-aside lookups by outcome (hit, miss, bypass)",
	}, []string{"outcome"})

	rateLimitDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coinwatch_ratelimit_decisions_total",
		Help: "Rate limiter decisions (allowed, denied, fail_open)",
	}, []string{"decision"})

	upstreamRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coinwatch_upstream_requests_total",
		Help: "Upstream CoinGecko fetches by endpoint and result",
	}, []string{"endpoint", "result"})

	registry.MustRegister(cacheRequests, rateLimitDecisions, upstreamRequests)

	return &Metrics{
		registry:           registry,
		cacheRequests:      cacheRequests,
		rateLimitDecisions: rateLimitDecisions,
		upstreamRequests:   upstreamRequests,
	}
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCache(outcome string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimit(decision string) {
	if m == nil {
		return
	}
	m.rateLimitDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveUpstream(endpoint, result string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, result).Inc()
}

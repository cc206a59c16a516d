// Package metrics exposes prometheus collectors for session and retrieval
// activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the connector's collectors on a private registry so tests can
// instantiate isolated sets.
type Set struct {
	registry *prometheus.Registry

	sessionsActive     *prometheus.GaugeVec
	sessionsOpened     *prometheus.CounterVec
	sessionsClosed     *prometheus.CounterVec
	searches           *prometheus.CounterVec
	fetches            *prometheus.CounterVec
	protocolViolations prometheus.Counter
}

// NewSet builds and registers the collector set.
func NewSet() *Set {
	registry := prometheus.NewRegistry()
	s := &Set{
		registry: registry,
		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clickup_mcp_sessions_active",
			Help: "Live sessions by transport kind.",
		}, []string{"kind"}),
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clickup_mcp_sessions_opened_total",
			Help: "Sessions created by transport kind.",
		}, []string{"kind"}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clickup_mcp_sessions_closed_total",
			Help: "Sessions closed by transport kind and close reason.",
		}, []string{"kind", "reason"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clickup_mcp_searches_total",
			Help: "Search calls by serving tier.",
		}, []string{"tier"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clickup_mcp_fetches_total",
			Help: "Fetch calls by outcome.",
		}, []string{"outcome"}),
		protocolViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clickup_mcp_protocol_violations_total",
			Help: "Rejected requests with missing or unknown session ids.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		s.sessionsActive,
		s.sessionsOpened,
		s.sessionsClosed,
		s.searches,
		s.fetches,
		s.protocolViolations,
	)
	return s
}

// Handler serves the registry in the prometheus exposition format.
func (s *Set) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// SessionOpened records a session creation.
func (s *Set) SessionOpened(kind string) {
	if s == nil {
		return
	}
	s.sessionsOpened.WithLabelValues(kind).Inc()
	s.sessionsActive.WithLabelValues(kind).Inc()
}

// SessionClosed records a session teardown.
func (s *Set) SessionClosed(kind, reason string) {
	if s == nil {
		return
	}
	s.sessionsClosed.WithLabelValues(kind, reason).Inc()
	s.sessionsActive.WithLabelValues(kind).Dec()
}

// SearchServed records which fallback tier produced a search response.
func (s *Set) SearchServed(tier string) {
	if s == nil {
		return
	}
	s.searches.WithLabelValues(tier).Inc()
}

// FetchServed records a fetch outcome ("ok", "not_found", "backend_error").
func (s *Set) FetchServed(outcome string) {
	if s == nil {
		return
	}
	s.fetches.WithLabelValues(outcome).Inc()
}

// ProtocolViolation records a rejected session-bound request.
func (s *Set) ProtocolViolation() {
	if s == nil {
		return
	}
	s.protocolViolations.Inc()
}

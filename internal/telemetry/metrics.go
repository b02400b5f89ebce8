// Package telemetry exposes Prometheus metrics for the daemon.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's Prometheus collectors on a private
// registry so tests can create instances without collisions.
type Metrics struct {
	registry *prometheus.Registry

	// MessagesProcessed counts chat messages by resulting stage and
	// the agent that handled them.
	MessagesProcessed *prometheus.CounterVec

	// SectionBuilds counts frontend section builds by section and
	// outcome ("ok" or "failed").
	SectionBuilds *prometheus.CounterVec

	// GenerationFailures counts upstream generation errors by agent.
	GenerationFailures *prometheus.CounterVec

	// ActiveSessions tracks live conversation sessions.
	ActiveSessions prometheus.Gauge

	// RequestDuration observes HTTP request latency.
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		MessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Chat messages processed, by resulting stage and handling agent.",
		}, []string{"stage", "agent"}),
		SectionBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_builds_total",
			Help:      "Frontend section builds, by section and outcome.",
		}, []string{"section", "status"}),
		GenerationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Upstream text generation failures, by agent.",
		}, []string{"agent"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesProcessed,
		m.SectionBuilds,
		m.GenerationFailures,
		m.ActiveSessions,
		m.RequestDuration,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the container build and the component registry.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics handles application metrics and monitoring
type Metrics struct {
	componentCreations *prometheus.CounterVec
	componentCacheHits *prometheus.CounterVec
	componentBuildTime *prometheus.HistogramVec
	shutdownErrors     prometheus.Counter
	useCaseInvocations *prometheus.CounterVec
}

// NewMetrics creates a metrics instance registered on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry to keep collectors isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		componentCreations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_component_creations_total",
			Help: "Number of component instantiations, by normalized reference and status.",
		}, []string{"ref", "status"}),
		componentCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_component_cache_hits_total",
			Help: "Number of component lookups served from the singleton cache.",
		}, []string{"ref"}),
		componentBuildTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registry_component_build_seconds",
			Help:    "Wall time spent constructing components.",
			Buckets: prometheus.DefBuckets,
		}, []string{"ref"}),
		shutdownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "registry_shutdown_errors_total",
			Help: "Number of component cleanup hooks that failed during shutdown.",
		}),
		useCaseInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "use_case_invocations_total",
			Help: "Number of use case invocations, by use case and status.",
		}, []string{"use_case", "status"}),
	}

	reg.MustRegister(
		m.componentCreations,
		m.componentCacheHits,
		m.componentBuildTime,
		m.shutdownErrors,
		m.useCaseInvocations,
	)
	return m
}

// RecordComponentCreation records one instantiation attempt.
func (m *Metrics) RecordComponentCreation(ref string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.componentCreations.WithLabelValues(ref, status).Inc()
	if err == nil {
		m.componentBuildTime.WithLabelValues(ref).Observe(duration.Seconds())
	}
}

// RecordComponentCacheHit records a lookup served from the cache.
func (m *Metrics) RecordComponentCacheHit(ref string) {
	if m == nil {
		return
	}
	m.componentCacheHits.WithLabelValues(ref).Inc()
}

// RecordShutdownError records a failed cleanup hook.
func (m *Metrics) RecordShutdownError() {
	if m == nil {
		return
	}
	m.shutdownErrors.Inc()
}

// RecordUseCaseInvocation records one use case call.
func (m *Metrics) RecordUseCaseInvocation(useCase string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.useCaseInvocations.WithLabelValues(useCase, status).Inc()
}

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus metrics for the reconciliation engine.
type Metrics struct {
	registry *prometheus.Registry

	// Lifecycle step metrics
	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec

	// Command metrics
	commandsExecuted *prometheus.CounterVec
	commandFailures  *prometheus.CounterVec

	// Read executor metrics
	readsScheduled prometheus.Counter
	readsFailed    prometheus.Counter
}

// NewMetrics creates and registers the engine metrics under the given
// namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		stepsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_executed_total",
				Help:      "Total number of lifecycle steps executed",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of lifecycle steps in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		commandsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_executed_total",
				Help:      "Total number of commands dispatched to transports",
			},
			[]string{"operation", "transport"},
		),
		commandFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_failures_total",
				Help:      "Total number of command failures (transport errors and non-zero exits)",
			},
			[]string{"operation", "transport"},
		),
		readsScheduled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reads_scheduled_total",
				Help:      "Total number of read commands scheduled by the read executor",
			},
		),
		readsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reads_failed_total",
				Help:      "Total number of read commands that resolved to null",
			},
		),
	}

	registry.MustRegister(
		m.stepsExecuted,
		m.stepDuration,
		m.commandsExecuted,
		m.commandFailures,
		m.readsScheduled,
		m.readsFailed,
	)

	return m
}

// RecordStep records one completed lifecycle step.
func (m *Metrics) RecordStep(step, status string, seconds float64) {
	if m == nil {
		return
	}
	m.stepsExecuted.WithLabelValues(step, status).Inc()
	m.stepDuration.WithLabelValues(step).Observe(seconds)
}

// RecordCommand records one dispatched command.
func (m *Metrics) RecordCommand(operation, transport string, failed bool) {
	if m == nil {
		return
	}
	m.commandsExecuted.WithLabelValues(operation, transport).Inc()
	if failed {
		m.commandFailures.WithLabelValues(operation, transport).Inc()
	}
}

// RecordReads records read executor activity.
func (m *Metrics) RecordReads(scheduled, failed int) {
	if m == nil {
		return
	}
	m.readsScheduled.Add(float64(scheduled))
	m.readsFailed.Add(float64(failed))
}

// Handler returns an HTTP handler serving the registry, for the optional
// metrics endpoint during long applies.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

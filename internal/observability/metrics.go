// Package observability provides Prometheus metrics for monitoring batch runs.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one process.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal         *prometheus.CounterVec
	PhaseDuration     *prometheus.HistogramVec
	LastSuccessfulRun prometheus.Gauge

	// Assembly metrics
	SymbolsProcessed *prometheus.CounterVec
	RowsAssembled    prometheus.Counter
	RowsWritten      prometheus.Counter

	// Sink metrics
	SinkWriteDuration *prometheus.HistogramVec
	SinkWriteErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trendchop"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "runs_total",
			Help:      "Total number of build runs by outcome",
		}, []string{"outcome"}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "phase_duration_seconds",
			Help:      "Build phase duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last run that wrote an output file",
		}),

		SymbolsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "symbols_total",
			Help:      "Total number of requested symbols by status",
		}, []string{"status"}),
		RowsAssembled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "rows_assembled_total",
			Help:      "Total number of feature rows assembled",
		}),
		RowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "rows_written_total",
			Help:      "Total number of feature rows written to the output file",
		}),

		SinkWriteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_duration_seconds",
			Help:      "Sink write duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		SinkWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_errors_total",
			Help:      "Total number of failed sink writes",
		}, []string{"sink"}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(outcome string, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if outcome == "OK" {
		m.LastSuccessfulRun.Set(float64(finishedAt.Unix()))
	}
}

// ObservePhase records how long a build phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordSymbol counts a requested symbol as "used" or "skipped".
func (m *Metrics) RecordSymbol(status string, rows int) {
	if m == nil {
		return
	}
	m.SymbolsProcessed.WithLabelValues(status).Inc()
	m.RowsAssembled.Add(float64(rows))
}

// RecordRowsWritten adds to the written rows counter.
func (m *Metrics) RecordRowsWritten(n int) {
	if m == nil {
		return
	}
	m.RowsWritten.Add(float64(n))
}

// RecordSinkWrite records a sink write and its error, if any.
func (m *Metrics) RecordSinkWrite(sink string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.SinkWriteDuration.WithLabelValues(sink).Observe(d.Seconds())
	if err != nil {
		m.SinkWriteErrors.WithLabelValues(sink).Inc()
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

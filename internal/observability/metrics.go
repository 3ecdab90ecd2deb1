// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Attribution metrics
	PositionsProcessed prometheus.Counter
	SubPeriodsCredited prometheus.Counter
	DerivedFallbacks   prometheus.Counter

	// Chain metrics
	ChainCallLatency *prometheus.HistogramVec
	ChainCallErrors  *prometheus.CounterVec

	// Storage metrics
	CheckpointsSaved  prometheus.Counter
	ArchiveRowsSaved  prometheus.Counter
	ArchiveWriteFails prometheus.Counter

	// Health metrics
	LastSuccessfulRun  prometheus.Gauge
	LastProcessedBlock prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lp_issuance"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "period",
			Name:      "runs_total",
			Help:      "Total number of period runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "period",
			Name:      "run_duration_seconds",
			Help:      "Duration of period runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),

		PositionsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attribution",
			Name:      "positions_processed_total",
			Help:      "Total number of positions walked during attribution",
		}),
		SubPeriodsCredited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attribution",
			Name:      "sub_periods_credited_total",
			Help:      "Total number of sub-periods whose fees were credited",
		}),
		DerivedFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attribution",
			Name:      "derived_fallbacks_total",
			Help:      "Fee-growth queries answered by the derived path",
		}),

		ChainCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "call_latency_seconds",
			Help:      "Latency of chain read calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ChainCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "call_errors_total",
			Help:      "Total number of failed chain read calls",
		}, []string{"method"}),

		CheckpointsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "checkpoints_saved_total",
			Help:      "Total number of checkpoints persisted",
		}),
		ArchiveRowsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_rows_total",
			Help:      "Total number of reward rows archived",
		}),
		ArchiveWriteFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_write_failures_total",
			Help:      "Total number of failed archive writes",
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful period run",
		}),
		LastProcessedBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_processed_block",
			Help:      "End block of the last successful period run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records one period run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordAttribution records attribution volume for one run.
func RecordAttribution(positions, creditedSubPeriods int) {
	DefaultMetrics.PositionsProcessed.Add(float64(positions))
	DefaultMetrics.SubPeriodsCredited.Add(float64(creditedSubPeriods))
}

// RecordDerivedFallback increments the derived-path counter.
func RecordDerivedFallback() {
	DefaultMetrics.DerivedFallbacks.Inc()
}

// RecordChainCall records one chain read.
func RecordChainCall(method string, seconds float64, err error) {
	DefaultMetrics.ChainCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.ChainCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordCheckpointSaved marks a persisted checkpoint and run progress.
func RecordCheckpointSaved(endBlock uint64) {
	DefaultMetrics.CheckpointsSaved.Inc()
	DefaultMetrics.LastProcessedBlock.Set(float64(endBlock))
}

// RecordArchiveWrite records one archive append attempt.
func RecordArchiveWrite(rows int, err error) {
	if err != nil {
		DefaultMetrics.ArchiveWriteFails.Inc()
		return
	}
	DefaultMetrics.ArchiveRowsSaved.Add(float64(rows))
}

// Package metrics records pipeline counters and latencies in a Prometheus
// registry. A CLI run is short-lived, so metrics are exported by writing the
// registry to a node-exporter textfile rather than by serving /metrics.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "featuregen"

// Recorder owns a private registry. A nil Recorder ignores observations.
type Recorder struct {
	registry *prometheus.Registry

	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	BackendRetries  *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Runs            *prometheus.CounterVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		BackendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Model backend calls, labeled by request kind and result.",
		}, []string{"kind", "result"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Model backend call latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 60, 120, 300},
		}, []string{"kind"}),
		BackendRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "retries_total",
			Help:      "Backend call retries, labeled by the error kind that triggered them.",
		}, []string{"error_kind"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups, labeled by entry kind and outcome.",
		}, []string{"kind", "result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 180, 600},
		}, []string{"stage"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs, labeled by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.BackendCalls,
		r.BackendDuration,
		r.BackendRetries,
		r.CacheLookups,
		r.StageDuration,
		r.Runs,
	)
	return r
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveBackend records one backend call.
func (r *Recorder) ObserveBackend(kind, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.BackendCalls.WithLabelValues(kind, result).Inc()
	r.BackendDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRetry records a retry triggered by errorKind.
func (r *Recorder) ObserveRetry(errorKind string) {
	if r == nil {
		return
	}
	r.BackendRetries.WithLabelValues(errorKind).Inc()
}

// ObserveCache records a cache lookup.
func (r *Recorder) ObserveCache(kind string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(result string) {
	if r == nil {
		return
	}
	r.Runs.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in text exposition format to path. An
// empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

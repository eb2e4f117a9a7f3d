package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MergeMetrics holds the Prometheus metrics of merge runs. A nil *MergeMetrics is
// valid and records nothing.
type MergeMetrics struct {
	registry *prometheus.Registry

	MergeRunsTotal   *prometheus.CounterVec
	MergeDuration    prometheus.Histogram
	MergedMessages   prometheus.Gauge
	FieldConflicts   *prometheus.CounterVec
	DiagnosticsTotal *prometheus.CounterVec
	CacheRequests    *prometheus.CounterVec
	LoadedVersions   prometheus.Counter
	LoadDuration     prometheus.Histogram
}

// NewMergeMetrics creates and registers the merge metrics
func NewMergeMetrics(registry *prometheus.Registry) *MergeMetrics {
	m := &MergeMetrics{
		registry: registry,
		MergeRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protomerge_merge_runs_total",
				Help: "Total number of merge runs",
			},
			[]string{"result"},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "protomerge_merge_duration_seconds",
				Help:    "Merge run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
		),
		MergedMessages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "protomerge_merged_messages",
				Help: "Top-level messages produced by the last merge",
			},
		),
		FieldConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protomerge_field_conflicts_total",
				Help: "Merged fields by conflict kind",
			},
			[]string{"kind"},
		),
		DiagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protomerge_diagnostics_total",
				Help: "Diagnostics emitted by kind",
			},
			[]string{"kind"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "protomerge_cache_requests_total",
				Help: "Merge cache lookups by result",
			},
			[]string{"result"},
		),
		LoadedVersions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "protomerge_loaded_versions_total",
				Help: "Version schemas compiled from proto sources",
			},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "protomerge_load_duration_seconds",
				Help:    "Time to compile one version's proto sources",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		m.MergeRunsTotal,
		m.MergeDuration,
		m.MergedMessages,
		m.FieldConflicts,
		m.DiagnosticsTotal,
		m.CacheRequests,
		m.LoadedVersions,
		m.LoadDuration,
	)

	return m
}

// ObserveMerge records one run with result "success" or "error"
func (m *MergeMetrics) ObserveMerge(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.MergeRunsTotal.WithLabelValues(result).Inc()
	m.MergeDuration.Observe(duration.Seconds())
}

func (m *MergeMetrics) SetMergedMessages(n int) {
	if m == nil {
		return
	}
	m.MergedMessages.Set(float64(n))
}

func (m *MergeMetrics) IncFieldConflict(kind string) {
	if m == nil {
		return
	}
	m.FieldConflicts.WithLabelValues(kind).Inc()
}

func (m *MergeMetrics) IncDiagnostic(kind string) {
	if m == nil {
		return
	}
	m.DiagnosticsTotal.WithLabelValues(kind).Inc()
}

// IncCacheRequest records a cache lookup with result "hit" or "miss"
func (m *MergeMetrics) IncCacheRequest(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *MergeMetrics) ObserveLoad(duration time.Duration) {
	if m == nil {
		return
	}
	m.LoadedVersions.Inc()
	m.LoadDuration.Observe(duration.Seconds())
}

// WriteTextfile writes the registry in the text exposition format, for collection by
// the node exporter textfile collector after a CLI run
func (m *MergeMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

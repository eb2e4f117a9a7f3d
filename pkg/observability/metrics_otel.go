package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments for merge runs. They are
// exported through the meter provider configured by InitOTel; with no provider the
// global no-op meter is used. A nil *OTelMetrics records nothing.
type OTelMetrics struct {
	mergeRuns     metric.Int64Counter
	mergeDuration metric.Float64Histogram
	diagnostics   metric.Int64Counter
	cacheRequests metric.Int64Counter
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/protomerge")

	m := &OTelMetrics{}
	var err error

	m.mergeRuns, err = meter.Int64Counter(
		"protomerge.merge.runs",
		metric.WithDescription("Total number of merge runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge_runs counter: %w", err)
	}

	m.mergeDuration, err = meter.Float64Histogram(
		"protomerge.merge.duration",
		metric.WithDescription("Merge run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge_duration histogram: %w", err)
	}

	m.diagnostics, err = meter.Int64Counter(
		"protomerge.merge.diagnostics",
		metric.WithDescription("Diagnostics emitted by merge runs"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnostics counter: %w", err)
	}

	m.cacheRequests, err = meter.Int64Counter(
		"protomerge.cache.requests",
		metric.WithDescription("Merge cache lookups"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_requests counter: %w", err)
	}

	return m, nil
}

// RecordMerge records one merge run
func (m *OTelMetrics) RecordMerge(ctx context.Context, result string, duration time.Duration, diagnostics int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.mergeRuns.Add(ctx, 1, attrs)
	m.mergeDuration.Record(ctx, duration.Seconds(), attrs)
	if diagnostics > 0 {
		m.diagnostics.Add(ctx, int64(diagnostics))
	}
}

// RecordCacheRequest records a merge cache lookup with result "hit" or "miss"
func (m *OTelMetrics) RecordCacheRequest(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

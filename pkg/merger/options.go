package merger

import (
	"runtime"

	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/protomerge/pkg/observability"
)

// Options control what a merge includes and how it is scheduled
type Options struct {
	// Workers bounds how many top-level messages merge concurrently. Values below 1
	// use GOMAXPROCS.
	Workers int

	// ExcludedMessages holds top-level names or nested paths (Order.Item)
	ExcludedMessages []string

	// ExcludedFields holds Message.field entries; any version's name matches
	ExcludedFields []string

	// FieldNameMappings overrides the exposed field name. Keys are Message.field or a
	// bare proto field name; the qualified form wins.
	FieldNameMappings map[string]string
}

// Option configures a Merger
type Option func(*Merger)

func WithLogger(logger *observability.Logger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(metrics *observability.MergeMetrics) Option {
	return func(m *Merger) {
		m.metrics = metrics
	}
}

func WithOTelMetrics(metrics *observability.OTelMetrics) Option {
	return func(m *Merger) {
		m.otelMetrics = metrics
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(m *Merger) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

func WithWorkers(workers int) Option {
	return func(m *Merger) {
		m.options.Workers = workers
	}
}

func WithExcludedMessages(names ...string) Option {
	return func(m *Merger) {
		m.options.ExcludedMessages = append(m.options.ExcludedMessages, names...)
	}
}

func WithExcludedFields(fields ...string) Option {
	return func(m *Merger) {
		m.options.ExcludedFields = append(m.options.ExcludedFields, fields...)
	}
}

func WithFieldNameMappings(mappings map[string]string) Option {
	return func(m *Merger) {
		if m.options.FieldNameMappings == nil {
			m.options.FieldNameMappings = make(map[string]string, len(mappings))
		}
		for k, v := range mappings {
			m.options.FieldNameMappings[k] = v
		}
	}
}

// WithOptions replaces the merge options wholesale
func WithOptions(opts Options) Option {
	return func(m *Merger) {
		m.options = opts
	}
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

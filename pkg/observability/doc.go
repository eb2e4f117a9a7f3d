// Package observability provides structured logging, Prometheus merge metrics and
// OpenTelemetry tracing for protomerge.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stderr)
//	logger.WithField("run_id", runID).Info("merge completed")
//
// Library code that is handed no logger uses NewNopLogger.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMergeMetrics(registry)
//	metrics.ObserveMerge("success", time.Since(start))
//	_ = metrics.WriteTextfile("/var/lib/node_exporter/protomerge.prom")
//
// All MergeMetrics and OTelMetrics methods accept a nil receiver.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "localhost:4317",
//		ServiceName: "protomerge",
//		Insecure:    true,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// UpdateLoggerWithTraceContext adds trace_id and span_id to a logger when the
// context carries a recording span.
package observability

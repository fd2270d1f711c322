// Package observability provides logging, metrics, and tracing
// for the module bootstrap pipeline.
//
// # Logging
//
// The Logger interface provides structured logging backed by zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("module configured",
//	    observability.String("module", "catalog"),
//	    observability.Duration("elapsed", d),
//	)
//
// # Metrics
//
// Prometheus metrics for pipeline runs, phase hooks and registrations:
//
//	metrics := observability.NewMetrics("modboot")
//	families, _ := metrics.Registry().Gather()
//
// # Tracing
//
// OpenTelemetry tracing with optional OTLP export. Each pipeline run,
// phase and module hook gets its own span:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{Enabled: true})
//	defer tracer.Shutdown(ctx)
package observability

// Package testdoubles provides spies for the observability interfaces of package stock.
//
//   - LogHandlerSpy: a slog.Handler capturing records, with a fluent matcher on level, message, and attributes
//   - ContextualLoggerSpy: captures context-aware log calls
//   - MetricsCollectorSpy: captures duration, counter, and value records (contextual and plain)
//   - TracingCollectorSpy: captures spans with their start and finish attributes
//
// They let the service and store tests assert on instrumentation without a telemetry backend.
package testdoubles

// Package oteladapters provides OpenTelemetry implementations of the observability interfaces of package stock.
// They plug into the store engines and the services without any further glue:
//
//	meter := otel.Meter("shelfstock")
//	tracer := otel.Tracer("shelfstock")
//
//	store, _ := postgresengine.NewStoreFromPGXPool(
//		pool,
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("shelfstock")),
//	)
package oteladapters

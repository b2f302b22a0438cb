// Package oteladapters implements the dbstate observability interfaces on top of OpenTelemetry.
//
// Wire them into a store with the postgresengine options:
//
//	store, err := postgresengine.NewStoreFromPGXPool(pool,
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("dbstate")),
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("dbstate"))),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("dbstate"))),
//	)
package oteladapters

// Package postgresengine provides the PostgreSQL side of the dbstate harness.
//
// A Store introspects one schema (tables and their primary keys), loads fixtures,
// dumps every table keyed by primary key and truncates all tables behind the reset guard.
// A Harness wraps a Store for the duration of one test and keeps the baseline snapshot
// that later diffs are computed against.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Fixtures validated against the introspected tables before any statement runs
//   - All statements built with goqu, values always bound as parameters
//   - Optional logging, metrics and tracing hooks
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewStoreFromPGXPool(db, postgresengine.WithLogger(logger))
//
//	h, err := postgresengine.NewHarness(ctx, store)
//	defer h.Close(ctx)
//
//	_, err = h.Load(ctx, dbstate.Table("widgets"), dbstate.Cols{"id": 1, "name": "A"})
//	// ... exercise the code under test ...
//	diff, err := h.Diff(ctx)
package postgresengine

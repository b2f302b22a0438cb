// Package postgreswrapper lets the integration tests run against every supported PostgreSQL adapter.
//
// The adapter (pgx, sql.DB, sqlx.DB) is chosen by the ADAPTER_TYPE environment variable,
// so the same test suite can be run once per driver.
//
// Usage:
//
//	h, wrapper := postgreswrapper.GivenHarness(t)
//	_, err := h.Load(ctx, dbstate.Table("widgets"), dbstate.Cols{"id": 1, "name": "A"})
//	postgreswrapper.GivenStatementExecuted(t, wrapper, `UPDATE widgets SET name = 'B'`)
//	diff, err := h.Diff(ctx)
package postgreswrapper

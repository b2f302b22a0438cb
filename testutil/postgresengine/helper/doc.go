// Package helper provides test doubles and fixture helpers for the dbstate PostgreSQL tests.
//
// It contains spies for the observability hooks (a slog handler, a metrics collector,
// a tracing collector and a contextual logger) and builders for the fixtures used across
// the integration test suite.
package helper

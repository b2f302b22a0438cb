// Package config provides PostgreSQL connection factories for the dbstate integration tests.
//
// It contains one factory per supported adapter (pgx.Pool, sql.DB, sqlx.DB), all pointing at
// the test database. The DSN can be overridden with the DBSTATE_TEST_DSN environment variable.
package config

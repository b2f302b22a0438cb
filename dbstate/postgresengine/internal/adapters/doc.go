// Package adapters provide the store handle implementations for the PostgreSQL harness.
//
// Three PostgreSQL database libraries are supported: pgxpool.Pool, sql.DB and sqlx.DB.
// All adapters expose parameterized statement execution and generic row reading through
// the common DBAdapter interface, so the harness can dump tables whose columns it only
// learns at runtime.
package adapters

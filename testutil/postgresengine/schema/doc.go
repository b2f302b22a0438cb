// Package schema creates the tables the dbstate integration tests run against.
//
// The migrations are embedded and applied with goose. They are written with IF NOT EXISTS
// so that several test packages can apply them against the same database.
package schema

package dbstate

import "errors"

var (
	// ErrSafetyViolation is returned when a destructive reset is attempted without the confirmation token.
	ErrSafetyViolation = errors.New("refusing to delete all data: confirmation token missing or wrong")

	// ErrSchema is returned when a table lacks a single-column primary key or a catalog query fails.
	ErrSchema = errors.New("unsupported or unreadable schema")

	// ErrUnknownTable is returned when a fixture names a table that does not exist in the store.
	ErrUnknownTable = errors.New("unknown table")

	// ErrNoTargetTable is returned when a fixture record appears before any table marker.
	ErrNoTargetTable = errors.New("no target table for fixture record")

	// ErrInvalidIdentifier is returned when a table, column or schema name does not match IdentifierPattern.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrSchemaDrift is returned when two snapshots do not cover the same set of tables.
	ErrSchemaDrift = errors.New("snapshots cover different tables, diff is not designed for DDL")

	// ErrEmptyBaseline is returned when a diff is requested before any fixture was loaded.
	ErrEmptyBaseline = errors.New("no baseline snapshot, load a fixture first")

	// ErrHarnessClosed is returned when a closed harness is asked to load data.
	ErrHarnessClosed = errors.New("harness is closed")

	// ErrInvalidFixture is returned when a fixture document can not be parsed into fixture items.
	ErrInvalidFixture = errors.New("invalid fixture")

	// ErrInvalidSnapshotDocument is returned when a serialized snapshot can not be decoded.
	ErrInvalidSnapshotDocument = errors.New("invalid snapshot document")

	// ErrNilDatabaseConnection is returned when a nil database connection is supplied.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptySchemaName is returned when an empty schema name is supplied.
	ErrEmptySchemaName = errors.New("schema name must not be empty")

	// ErrBuildingQueryFailed is returned when a SQL statement can not be built.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingFailed is returned when a read from the store fails.
	ErrQueryingFailed = errors.New("querying the store failed")

	// ErrExecutingFailed is returned when a write to the store fails.
	ErrExecutingFailed = errors.New("executing statement failed")
)

package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine/internal/adapters"
)

const (
	defaultSchemaName = "public"
	dialectPostgres   = "postgres"

	catalogTables     = "pg_tables"
	catalogIndexes    = "pg_indexes"
	catalogInfoSchema = "information_schema"
	catalogColumns    = "columns"
	colTableSchema    = "table_schema"
	colColumnTable    = "table_name"
	colColumnName     = "column_name"
	colOrdinal        = "ordinal_position"
	colSchemaName     = "schemaname"
	colTableName      = "tablename"
	colIndexName      = "indexname"
	colIndexDef       = "indexdef"
	primaryKeyPattern = "%_pkey"
	identityRestart   = "RESTART"

	operationIntrospect = "introspect"
	operationLoad       = "load"
	operationDump       = "dump"
	operationReset      = "reset"

	errorTypeSchema          = "schema"
	errorTypeFixture         = "fixture"
	errorTypeBuildQuery      = "build_query"
	errorTypeExec            = "exec"
	errorTypeQuery           = "query"
	errorTypeSafetyViolation = "safety_violation"

	logMsgOperation          = "dbstate operation: "
	logMsgSQLExecuted        = "executed sql for: "
	logMsgIntrospectFailed   = "schema introspection failed"
	logMsgInvalidFixture     = "fixture rejected"
	logMsgBuildQueryFailed   = "failed to build query"
	logMsgInsertFailed       = "fixture insert failed"
	logMsgDumpFailed         = "dumping table failed"
	logMsgResetRefused       = "reset refused by safety guard"
	logMsgTruncateFailed     = "truncating tables failed"
	logMsgNothingToTruncate  = "no tables to truncate"
	logMsgDiffComputed       = "dbstate diff computed"
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrDurationMS        = "duration_ms"
	logAttrSchema            = "schema"
	logAttrTable             = "table"
	logAttrTableCount        = "table_count"
	logAttrRowCount          = "row_count"
	logAttrFixtureItemsCount = "fixture_items"
)

// Store gives the harness access to one PostgreSQL schema: introspection, fixture loading,
// full dumps and the guarded reset. It holds no test state; see Harness for the lifecycle.
type Store struct {
	db               adapters.DBAdapter
	schema           string
	ignoredTables    map[string]struct{}
	restartIdentity  bool
	guard            dbstate.ResetGuard
	logger           dbstate.Logger
	contextualLogger dbstate.ContextualLogger
	metricsCollector dbstate.MetricsCollector
	tracingCollector dbstate.TracingCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, dbstate.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, dbstate.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, dbstate.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	s := &Store{
		db:            db,
		schema:        defaultSchemaName,
		ignoredTables: make(map[string]struct{}),
		guard:         dbstate.NewResetGuard(nil),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Schema returns the name of the managed database schema.
func (s *Store) Schema() string {
	return s.schema
}

// TableNames returns the names of all tables in the schema, sorted lexicographically.
func (s *Store) TableNames(ctx context.Context) ([]string, error) {
	observer, ctx := s.startOperation(ctx, operationIntrospect)

	tableNames, err := s.tableNames(ctx)
	if err != nil {
		return nil, observer.fail(logMsgIntrospectFailed, errorTypeSchema, err, logAttrSchema, s.schema)
	}

	observer.succeed(nil, logAttrTableCount, len(tableNames))

	return tableNames, nil
}

// PrimaryKeys returns the primary key column of every table in the schema.
// A table without a single-column primary key yields dbstate.ErrSchema.
func (s *Store) PrimaryKeys(ctx context.Context) (dbstate.PrimaryKeys, error) {
	observer, ctx := s.startOperation(ctx, operationIntrospect)

	tableNames, err := s.tableNames(ctx)
	if err != nil {
		return nil, observer.fail(logMsgIntrospectFailed, errorTypeSchema, err, logAttrSchema, s.schema)
	}

	pkeys, err := s.primaryKeys(ctx, tableNames)
	if err != nil {
		return nil, observer.fail(logMsgIntrospectFailed, errorTypeSchema, err, logAttrSchema, s.schema)
	}

	observer.succeed(nil, logAttrTableCount, len(pkeys))

	return pkeys, nil
}

// Load inserts the fixture items, one INSERT per record.
//
// All items are checked before the first statement runs, so a malformed fixture
// (unknown table, record without table, invalid column name, unbindable value) writes nothing.
// A failing INSERT aborts the load. Rows inserted before it stay in place.
func (s *Store) Load(ctx context.Context, items ...dbstate.FixtureItem) error {
	observer, ctx := s.startOperation(ctx, operationLoad)

	tableNames, err := s.tableNames(ctx)
	if err != nil {
		return observer.fail(logMsgIntrospectFailed, errorTypeSchema, err, logAttrSchema, s.schema)
	}

	inserts, err := dbstate.PlanInserts(tableNames, items...)
	if err != nil {
		return observer.fail(logMsgInvalidFixture, errorTypeFixture, err, logAttrFixtureItemsCount, len(items))
	}

	if err = s.resolvePositionalColumns(ctx, inserts); err != nil {
		return observer.fail(logMsgInvalidFixture, errorTypeFixture, err, logAttrFixtureItemsCount, len(items))
	}

	for _, insert := range inserts {
		statement, args, buildErr := s.buildInsertQuery(insert)
		if buildErr != nil {
			return observer.fail(logMsgBuildQueryFailed, errorTypeBuildQuery, buildErr, logAttrTable, insert.Table)
		}

		if _, execErr := s.exec(ctx, operationLoad, statement, args...); execErr != nil {
			return observer.fail(logMsgInsertFailed, errorTypeExec, execErr, logAttrTable, insert.Table)
		}
	}

	s.recordValue(ctx, metricRowsLoaded, operationLoad, float64(len(inserts)))
	observer.succeed(
		map[string]string{logAttrRowCount: fmt.Sprintf("%d", len(inserts))},
		logAttrRowCount, len(inserts),
	)

	return nil
}

// LoadYAML parses a YAML fixture (see dbstate.ParseFixtureYAML) and loads it.
func (s *Store) LoadYAML(ctx context.Context, data []byte) error {
	fixture, err := dbstate.ParseFixtureYAML(data)
	if err != nil {
		return err
	}

	return s.Load(ctx, fixture...)
}

// Dump reads the full content of every table, keyed by primary key value.
// It only reads; two dumps without writes in between are equal.
func (s *Store) Dump(ctx context.Context) (dbstate.Snapshot, error) {
	observer, ctx := s.startOperation(ctx, operationDump)

	tableNames, err := s.tableNames(ctx)
	if err != nil {
		return nil, observer.fail(logMsgIntrospectFailed, errorTypeSchema, err, logAttrSchema, s.schema)
	}

	pkeys, err := s.primaryKeys(ctx, tableNames)
	if err != nil {
		return nil, observer.fail(logMsgIntrospectFailed, errorTypeSchema, err, logAttrSchema, s.schema)
	}

	snapshot := make(dbstate.Snapshot, len(tableNames))

	for _, tableName := range tableNames {
		tableRows, dumpErr := s.dumpTable(ctx, tableName, pkeys[tableName])
		if dumpErr != nil {
			return nil, observer.fail(logMsgDumpFailed, errorTypeQuery, dumpErr, logAttrTable, tableName)
		}

		snapshot[tableName] = tableRows
	}

	s.recordValue(ctx, metricRowsDumped, operationDump, float64(snapshot.RowCount()))
	observer.succeed(
		map[string]string{logAttrTableCount: fmt.Sprintf("%d", len(snapshot))},
		logAttrTableCount, len(snapshot),
		logAttrRowCount, snapshot.RowCount(),
	)

	return snapshot, nil
}

// ResetAll truncates every table of the schema, cascading to dependent tables.
//
// It refuses with dbstate.ErrSafetyViolation, before touching the store, unless the
// environment variable dbstate.ConfirmationEnvVar equals dbstate.ConfirmationPhrase.
func (s *Store) ResetAll(ctx context.Context) error {
	observer, ctx := s.startOperation(ctx, operationReset)

	if err := s.guard.Check(); err != nil {
		s.incrementCounter(ctx, metricSafetyViolations, map[string]string{labelOperation: operationReset})
		return observer.fail(logMsgResetRefused, errorTypeSafetyViolation, err, logAttrSchema, s.schema)
	}

	tableNames, err := s.tableNames(ctx)
	if err != nil {
		return observer.fail(logMsgIntrospectFailed, errorTypeSchema, err, logAttrSchema, s.schema)
	}

	if len(tableNames) == 0 {
		s.logWarn(ctx, logMsgNothingToTruncate, logAttrSchema, s.schema)
		observer.succeed(nil, logAttrTableCount, 0)

		return nil
	}

	statement, args, err := s.buildTruncateQuery(tableNames)
	if err != nil {
		return observer.fail(logMsgBuildQueryFailed, errorTypeBuildQuery, err, logAttrSchema, s.schema)
	}

	if _, execErr := s.exec(ctx, operationReset, statement, args...); execErr != nil {
		return observer.fail(logMsgTruncateFailed, errorTypeExec, execErr, logAttrSchema, s.schema)
	}

	s.recordValue(ctx, metricTablesTruncated, operationReset, float64(len(tableNames)))
	observer.succeed(
		map[string]string{logAttrTableCount: fmt.Sprintf("%d", len(tableNames))},
		logAttrTableCount, len(tableNames),
	)

	return nil
}

func (s *Store) tableNames(ctx context.Context) ([]string, error) {
	statement, args, err := s.buildTableNamesQuery()
	if err != nil {
		return nil, errors.Join(dbstate.ErrSchema, err)
	}

	rows, err := s.fetchAll(ctx, operationIntrospect, statement, args...)
	if err != nil {
		return nil, errors.Join(dbstate.ErrSchema, err)
	}

	tableNames := make([]string, 0, len(rows))

	for _, row := range rows {
		tableName, ok := asString(row[colTableName])
		if !ok {
			return nil, errors.Join(dbstate.ErrSchema, fmt.Errorf("unexpected %s value %v", colTableName, row[colTableName]))
		}

		if _, ignored := s.ignoredTables[tableName]; ignored {
			continue
		}

		if err := dbstate.ValidateIdentifier("table", tableName); err != nil {
			return nil, errors.Join(dbstate.ErrSchema, err)
		}

		tableNames = append(tableNames, tableName)
	}

	slices.Sort(tableNames)

	return tableNames, nil
}

func (s *Store) primaryKeys(ctx context.Context, tableNames []string) (dbstate.PrimaryKeys, error) {
	statement, args, err := s.buildPrimaryKeysQuery()
	if err != nil {
		return nil, errors.Join(dbstate.ErrSchema, err)
	}

	rows, err := s.fetchAll(ctx, operationIntrospect, statement, args...)
	if err != nil {
		return nil, errors.Join(dbstate.ErrSchema, err)
	}

	pkeys := make(dbstate.PrimaryKeys, len(tableNames))

	for _, row := range rows {
		tableName, okTable := asString(row[colTableName])
		indexDef, okDef := asString(row[colIndexDef])
		if !okTable || !okDef {
			return nil, errors.Join(dbstate.ErrSchema, fmt.Errorf("unexpected %s row %v", catalogIndexes, row))
		}

		if !slices.Contains(tableNames, tableName) {
			continue
		}

		column, parseErr := dbstate.ParsePrimaryKeyColumn(indexDef)
		if parseErr != nil {
			return nil, errors.Join(parseErr, fmt.Errorf("table %q", tableName))
		}

		if existing, found := pkeys[tableName]; found && existing != column {
			return nil, errors.Join(dbstate.ErrSchema, fmt.Errorf("table %q has more than one primary key index", tableName))
		}

		pkeys[tableName] = column
	}

	for _, tableName := range tableNames {
		if _, found := pkeys[tableName]; !found {
			return nil, errors.Join(dbstate.ErrSchema, fmt.Errorf("table %q has no primary key", tableName))
		}
	}

	return pkeys, nil
}

// resolvePositionalColumns fills in the column list of positional inserts with the
// leading columns of the table in ordinal order, which is what PostgreSQL assigns
// VALUES to when an INSERT has no column list.
func (s *Store) resolvePositionalColumns(ctx context.Context, inserts []dbstate.Insert) error {
	columnsByTable := make(map[string][]string)

	for i := range inserts {
		if !inserts[i].IsPositional() {
			continue
		}

		tableName := inserts[i].Table

		columns, found := columnsByTable[tableName]
		if !found {
			var err error

			columns, err = s.columnNames(ctx, tableName)
			if err != nil {
				return err
			}

			columnsByTable[tableName] = columns
		}

		if len(inserts[i].Values) > len(columns) {
			return errors.Join(
				dbstate.ErrInvalidFixture,
				fmt.Errorf("table %q has %d columns, record has %d values", tableName, len(columns), len(inserts[i].Values)),
			)
		}

		inserts[i].Columns = columns[:len(inserts[i].Values)]
	}

	return nil
}

func (s *Store) columnNames(ctx context.Context, tableName string) ([]string, error) {
	statement, args, err := goqu.Dialect(dialectPostgres).
		From(goqu.S(catalogInfoSchema).Table(catalogColumns)).
		Prepared(true).
		Select(colColumnName).
		Where(
			goqu.C(colTableSchema).Eq(s.schema),
			goqu.C(colColumnTable).Eq(tableName),
		).
		Order(goqu.C(colOrdinal).Asc()).
		ToSQL()
	if err != nil {
		return nil, errors.Join(dbstate.ErrBuildingQueryFailed, err)
	}

	rows, err := s.fetchAll(ctx, operationIntrospect, statement, args...)
	if err != nil {
		return nil, errors.Join(dbstate.ErrSchema, err)
	}

	columns := make([]string, 0, len(rows))

	for _, row := range rows {
		column, ok := asString(row[colColumnName])
		if !ok {
			return nil, errors.Join(dbstate.ErrSchema, fmt.Errorf("unexpected %s value %v", colColumnName, row[colColumnName]))
		}

		columns = append(columns, column)
	}

	return columns, nil
}

func (s *Store) dumpTable(ctx context.Context, tableName, pkey string) (dbstate.TableRows, error) {
	statement, args, err := s.buildSelectAllQuery(tableName)
	if err != nil {
		return nil, err
	}

	rows, err := s.fetchAll(ctx, operationDump, statement, args...)
	if err != nil {
		return nil, err
	}

	tableRows := make(dbstate.TableRows, len(rows))

	for _, row := range rows {
		key, ok := row[pkey]
		if !ok {
			return nil, errors.Join(dbstate.ErrSchema, fmt.Errorf("table %q rows lack primary key column %q", tableName, pkey))
		}

		tableRows[dbstate.KeyOf(key)] = row
	}

	return tableRows, nil
}

func (s *Store) fetchAll(ctx context.Context, action string, statement string, args ...any) ([]map[string]any, error) {
	start := time.Now()
	rows, err := adapters.FetchAll(ctx, s.db, statement, args...)
	s.logStatement(ctx, statement, action, time.Since(start))

	if err != nil {
		return nil, errors.Join(dbstate.ErrQueryingFailed, err)
	}

	return rows, nil
}

func (s *Store) exec(ctx context.Context, action string, statement string, args ...any) (int64, error) {
	start := time.Now()
	result, err := s.db.Exec(ctx, statement, args...)
	s.logStatement(ctx, statement, action, time.Since(start))

	if err != nil {
		return 0, errors.Join(dbstate.ErrExecutingFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Join(dbstate.ErrExecutingFailed, err)
	}

	return rowsAffected, nil
}

func (s *Store) buildTableNamesQuery() (string, []any, error) {
	statement, args, err := goqu.Dialect(dialectPostgres).
		From(catalogTables).
		Prepared(true).
		Select(colTableName).
		Where(goqu.C(colSchemaName).Eq(s.schema)).
		Order(goqu.C(colTableName).Asc()).
		ToSQL()
	if err != nil {
		return "", nil, errors.Join(dbstate.ErrBuildingQueryFailed, err)
	}

	return statement, args, nil
}

func (s *Store) buildPrimaryKeysQuery() (string, []any, error) {
	statement, args, err := goqu.Dialect(dialectPostgres).
		From(catalogIndexes).
		Prepared(true).
		Select(colTableName, colIndexDef).
		Where(
			goqu.C(colSchemaName).Eq(s.schema),
			goqu.C(colIndexName).Like(primaryKeyPattern),
		).
		Order(goqu.C(colTableName).Asc()).
		ToSQL()
	if err != nil {
		return "", nil, errors.Join(dbstate.ErrBuildingQueryFailed, err)
	}

	return statement, args, nil
}

func (s *Store) buildSelectAllQuery(tableName string) (string, []any, error) {
	statement, args, err := goqu.Dialect(dialectPostgres).
		From(goqu.S(s.schema).Table(tableName)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, errors.Join(dbstate.ErrBuildingQueryFailed, err)
	}

	return statement, args, nil
}

func (s *Store) buildInsertQuery(insert dbstate.Insert) (string, []any, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(goqu.S(s.schema).Table(insert.Table)).
		Prepared(true)

	if len(insert.Columns) > 0 {
		columns := make([]any, len(insert.Columns))
		for i, column := range insert.Columns {
			columns[i] = column
		}

		insertStmt = insertStmt.Cols(columns...)
	}

	statement, args, err := insertStmt.Vals(insert.Values).ToSQL()
	if err != nil {
		return "", nil, errors.Join(dbstate.ErrBuildingQueryFailed, err)
	}

	return statement, args, nil
}

func (s *Store) buildTruncateQuery(tableNames []string) (string, []any, error) {
	tables := make([]any, len(tableNames))
	for i, tableName := range tableNames {
		tables[i] = goqu.S(s.schema).Table(tableName)
	}

	truncateStmt := goqu.Dialect(dialectPostgres).
		Truncate(tables...).
		Cascade()

	if s.restartIdentity {
		truncateStmt = truncateStmt.Identity(identityRestart)
	}

	statement, args, err := truncateStmt.ToSQL()
	if err != nil {
		return "", nil, errors.Join(dbstate.ErrBuildingQueryFailed, err)
	}

	return statement, args, nil
}

// asString accepts catalog values as string or, depending on the driver, as []byte.
func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

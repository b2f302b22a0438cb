package postgreswrapper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine"
	"github.com/AntonStoeckl/dbstate-harness-go/testutil/postgresengine/config"
	"github.com/AntonStoeckl/dbstate-harness-go/testutil/postgresengine/helper"
	"github.com/AntonStoeckl/dbstate-harness-go/testutil/postgresengine/schema"
)

const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper gives tests the Store under test plus raw statement access to the same database.
type Wrapper interface {
	GetStore() *postgresengine.Store
	Exec(ctx context.Context, query string, args ...any) error
	Close()
}

type connWrapper struct {
	store *postgresengine.Store
	exec  func(ctx context.Context, query string, args ...any) error
	close func()
}

func (w *connWrapper) GetStore() *postgresengine.Store {
	return w.store
}

func (w *connWrapper) Exec(ctx context.Context, query string, args ...any) error {
	return w.exec(ctx, query, args...)
}

func (w *connWrapper) Close() {
	w.close()
}

// execer is satisfied by *sql.DB and *sqlx.DB.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

func wrapDatabaseSQL(db execer, store *postgresengine.Store) *connWrapper {
	return &connWrapper{
		store: store,
		exec: func(ctx context.Context, query string, args ...any) error {
			_, err := db.ExecContext(ctx, query, args...)
			return err
		},
		close: func() { _ = db.Close() },
	}
}

// RequireDatabaseEnvVar, when set to any value, turns a missing test database into a test failure instead of a skip.
const RequireDatabaseEnvVar = "DBSTATE_TEST_REQUIRE_DB"

var errDatabaseUnreachable = errors.New("test database not reachable")

var (
	migrateOnce sync.Once
	migrateErr  error
)

// migrateTestSchema opens the test database and applies the migrations.
// Failing to open or ping the database yields errDatabaseUnreachable.
func migrateTestSchema() error {
	db, err := config.PostgresSQLDBTestConfig()
	if err != nil {
		return errors.Join(errDatabaseUnreachable, err)
	}
	defer func() { _ = db.Close() }()

	return schema.Migrate(context.Background(), db)
}

// skipOrFail skips the test when the database is unreachable and RequireDatabaseEnvVar is unset.
// Every other error fails the test.
func skipOrFail(t testing.TB, err error) {
	t.Helper()

	if err == nil {
		return
	}

	if errors.Is(err, errDatabaseUnreachable) && os.Getenv(RequireDatabaseEnvVar) == "" {
		t.Skipf("skipping database test: %v", err)
		return
	}

	t.Fatalf("error preparing the test database: %v", err)
}

// GivenMigratedTestSchema applies the test schema migrations once per test binary.
// Without a reachable test database the calling test is skipped.
func GivenMigratedTestSchema(t testing.TB) {
	t.Helper()

	migrateOnce.Do(func() {
		migrateErr = migrateTestSchema()
	})

	skipOrFail(t, migrateErr)
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the ADAPTER_TYPE environment variable.
// The store always ignores the migration bookkeeping table; options are applied after that.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	GivenMigratedTestSchema(t)

	allOptions := append([]postgresengine.Option{postgresengine.WithIgnoredTables(schema.MigrationsTable)}, options...)

	switch adapterType {
	case typePGXPool, "":
		poolConfig, err := config.PostgresPGXPoolTestConfig()
		require.NoError(t, err, "error parsing the test DSN")

		connPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewStoreFromPGXPool(connPool, allOptions...)
		assert.NoError(t, err, "error creating store")

		return &connWrapper{
			store: store,
			exec: func(ctx context.Context, query string, args ...any) error {
				_, err := connPool.Exec(ctx, query, args...)
				return err
			},
			close: connPool.Close,
		}

	case typeSQLDB:
		db, err := config.PostgresSQLDBTestConfig()
		require.NoError(t, err, "error connecting to the test database")

		store, err := postgresengine.NewStoreFromSQLDB(db, allOptions...)
		assert.NoError(t, err, "error creating store")

		return wrapDatabaseSQL(db, store)

	case typeSQLXDB:
		db, err := config.PostgresSQLXTestConfig()
		require.NoError(t, err, "error connecting to the test database")

		store, err := postgresengine.NewStoreFromSQLX(db, allOptions...)
		assert.NoError(t, err, "error creating store")

		return wrapDatabaseSQL(db, store)

	default:
		panic(fmt.Sprintf("unsupported ADAPTER_TYPE %q", adapterType))
	}
}

// GivenWrapper creates a wrapper that is closed when the test ends.
func GivenWrapper(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	wrapper := CreateWrapperWithTestConfig(t, options...)
	t.Cleanup(wrapper.Close)

	return wrapper
}

// GivenHarness confirms the reset, creates a harness on a fresh wrapper and closes both when the test ends.
func GivenHarness(t testing.TB, options ...postgresengine.Option) (*postgresengine.Harness, Wrapper) {
	t.Helper()

	helper.GivenResetConfirmed(t)
	wrapper := GivenWrapper(t, options...)

	h, err := postgresengine.NewHarness(context.Background(), wrapper.GetStore())
	require.NoError(t, err, "error creating the harness")

	t.Cleanup(func() {
		assert.NoError(t, h.Close(context.Background()), "error closing the harness")
	})

	return h, wrapper
}

// GivenStatementExecuted runs a statement the way the code under test would.
func GivenStatementExecuted(t testing.TB, wrapper Wrapper, query string, args ...any) {
	t.Helper()

	err := wrapper.Exec(context.Background(), query, args...)
	require.NoError(t, err, "error executing %q", query)
}

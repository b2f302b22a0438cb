package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine"
)

const driverPostgres = "postgres"

// openStore connects with the configured adapter and returns the store plus a function releasing the connection.
// sql.db and sqlx.db connect lazily, so errors for those show up on the first query.
func openStore(ctx context.Context, cfg Config, logOutput io.Writer) (*postgresengine.Store, func(), error) {
	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	options := []postgresengine.Option{
		postgresengine.WithSchema(cfg.Schema),
		postgresengine.WithLogger(logger),
	}

	if len(cfg.IgnoreTables) > 0 {
		options = append(options, postgresengine.WithIgnoredTables(cfg.IgnoreTables...))
	}

	if cfg.RestartIdentity {
		options = append(options, postgresengine.WithRestartIdentity())
	}

	switch cfg.Adapter {
	case adapterSQLDB:
		db, err := sql.Open(driverPostgres, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sql.DB: %w", err)
		}

		store, err := postgresengine.NewStoreFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	case adapterSQLX:
		db, err := sqlx.Open(driverPostgres, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlx.DB: %w", err)
		}

		store, err := postgresengine.NewStoreFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("create pgx pool: %w", err)
		}

		store, err := postgresengine.NewStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return store, pool.Close, nil
	}
}

// withStore loads the configuration, opens the store for the duration of run and closes it afterwards.
func withStore(cmd *cobra.Command, run func(ctx context.Context, store *postgresengine.Store) error) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, closeStore, err := openStore(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeStore()

	return run(ctx, store)
}

package config

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPGXPoolTestConfig returns a pgxpool.Config for the test database, sized like the database/sql pools.
func PostgresPGXPoolTestConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(PostgresTestDSN())
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = testMaxOpenConns
	cfg.MinConns = 1
	cfg.MaxConnLifetime = testConnMaxLifetime
	cfg.MaxConnIdleTime = testConnMaxIdleTime
	cfg.HealthCheckPeriod = time.Minute
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return cfg, nil
}

package config

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	testMaxOpenConns    = 10
	testMaxIdleConns    = 2
	testConnMaxLifetime = time.Hour
	testConnMaxIdleTime = 5 * time.Minute
	testPingTimeout     = 3 * time.Second
)

// PostgresSQLDBTestConfig opens and pings a *sql.DB on the test database.
func PostgresSQLDBTestConfig() (*sql.DB, error) {
	db, err := sql.Open("postgres", PostgresTestDSN())
	if err != nil {
		return nil, err
	}

	if err := prepare(db); err != nil {
		return nil, err
	}

	return db, nil
}

// PostgresSQLXTestConfig is PostgresSQLDBTestConfig for sqlx.
func PostgresSQLXTestConfig() (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", PostgresTestDSN())
	if err != nil {
		return nil, err
	}

	if err := prepare(db.DB); err != nil {
		return nil, err
	}

	return db, nil
}

// prepare sizes the pool and pings; it closes db when the ping fails.
func prepare(db *sql.DB) error {
	db.SetMaxOpenConns(testMaxOpenConns)
	db.SetMaxIdleConns(testMaxIdleConns)
	db.SetConnMaxLifetime(testConnMaxLifetime)
	db.SetConnMaxIdleTime(testConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), testPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	return nil
}

// Package postgres implements the SQL executor and migration ledger on a
// pgx connection pool.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-db/warden/pkg/errors"
)

// NewPool creates and verifies a connection pool from a Postgres
// connection string.
func NewPool(ctx context.Context, connString string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidRequest, "invalid database connection string")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.CodeUnavailable, "database is not reachable")
	}

	return pool, nil
}

package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// PoolAdapter exposes a *pgxpool.Pool through the pgseed.DBConnection
// interface so the public API never names pgx types directly. pgx's Row and
// Conn already satisfy the pgseed row and pooled connection interfaces, so
// only the pool itself needs wrapping.
//
// Safe for concurrent use; pgxpool.Pool is thread-safe.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter wraps pool as a pgseed.DBConnection.
func NewPoolAdapter(pool *pgxpool.Pool) pgseed.DBConnection {
	return PoolAdapter{pool: pool}
}

func (p PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgseed.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Acquire hands out a dedicated connection for statements that refuse to run
// inside a pooled transaction, such as CREATE DATABASE and DROP DATABASE.
func (p PoolAdapter) Acquire(ctx context.Context) (pgseed.PooledConnection, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var _ pgseed.DBConnection = PoolAdapter{}

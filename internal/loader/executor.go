package loader

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is the statement surface the pipeline phases run against.
// pgx.Tx, *pgxpool.Conn, and *pgxpool.Pool all satisfy it, which lets the
// in-transaction phases and the post-transaction phases share one code path.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

package testing

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolWithNoticeCapture wraps a pgxpool.Pool with notice capture support.
// Every connection the pool hands out reports server notices to Capture.
type PoolWithNoticeCapture struct {
	*pgxpool.Pool
	Capture *NoticeCapture
}

// GetTestPoolWithNoticeCapture opens a pool into dbName with each
// connection's OnNotice wired to a fresh NoticeCapture, for tests that load
// into trigger-bearing schemas. The pool is closed automatically when the
// test completes.
func GetTestPoolWithNoticeCapture(t *testing.T, connString, dbName string) *PoolWithNoticeCapture {
	t.Helper()

	capture := NewNoticeCapture()
	poolConfig := targetPoolConfig(t, connString, dbName)
	poolConfig.ConnConfig.OnNotice = capture.Handler()

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		t.Fatalf("create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &PoolWithNoticeCapture{Pool: pool, Capture: capture}
}

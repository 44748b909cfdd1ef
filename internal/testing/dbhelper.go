// Package testing provides helpers for integration tests that need a real
// PostgreSQL server: a shared throwaway container, per-test scratch
// databases, and pools wired for notice capture.
package testing

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/testinfra"
)

// sharedContainer starts one throwaway Postgres for the whole test binary;
// callers share it and create scratch databases inside it.
var sharedContainer = sync.OnceValues(func() (string, error) {
	container, err := testinfra.StartSimplePostgres(context.Background())
	if err != nil {
		return "", err
	}
	return container.ConnString, nil
})

// GetTestConnectionString returns the test database connection string.
// Priority: PGSEED_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("PGSEED_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := sharedContainer()
	if err != nil {
		t.Skipf("PGSEED_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test under -short.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase skips under -short, then resolves a server to test
// against or skips when none is reachable.
func RequireDatabase(t *testing.T) string {
	t.Helper()
	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// withManagementPool dials the management database, runs fn, and closes the
// pool again. The create and drop helpers only issue a statement or two, so
// none of them hold a pool open.
func withManagementPool(connString string, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return fmt.Errorf("connect to management database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}

// CreateTestDB creates dbName on the server behind connString and returns
// the cleanup that drops it again, for defer or t.Cleanup.
func CreateTestDB(t *testing.T, connString, dbName string) func() {
	t.Helper()

	err := withManagementPool(connString, func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize())
		return err
	})
	if err != nil {
		t.Fatalf("create test database %s: %v", dbName, err)
	}
	t.Logf("✓ Created test database %s", dbName)

	return func() {
		CleanupTestDB(t, connString, dbName)
	}
}

// CleanupTestDB terminates outstanding sessions and drops the test database.
// Safe to call multiple times (uses DROP DATABASE IF EXISTS).
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	err := withManagementPool(connString, func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx,
			`SELECT pg_terminate_backend(pid)
			 FROM pg_stat_activity
			 WHERE datname = $1 AND pid <> pg_backend_pid()`, dbName)
		if err != nil {
			t.Logf("Warning: failed to terminate connections to %s: %v", dbName, err)
		}

		_, err = pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize())
		return err
	})
	if err != nil {
		t.Logf("Warning: failed to drop database %s: %v", dbName, err)
		return
	}
	t.Logf("✓ Cleaned up database %s", dbName)
}

// targetPoolConfig rewrites connString to point at dbName and parses the
// result into a pool configuration.
func targetPoolConfig(t *testing.T, connString, dbName string) *pgxpool.Config {
	t.Helper()

	config, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("parse connection string: %v", err)
	}
	config.Database = dbName

	poolConfig, err := pgxpool.ParseConfig(db.BuildConnectionString(config))
	if err != nil {
		t.Fatalf("parse pool config: %v", err)
	}
	return poolConfig
}

// GetTestPool creates a connection pool to the specified database.
// The pool is closed automatically when the test completes.
func GetTestPool(t *testing.T, connString, dbName string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.NewWithConfig(context.Background(), targetPoolConfig(t, connString, dbName))
	if err != nil {
		t.Fatalf("create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

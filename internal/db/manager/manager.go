package manager

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

const (
	sqlDatabaseExists = "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"

	sqlTerminateBackends = `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`
)

// Manager implements database lifecycle operations on an injected
// DBConnection. The loader uses Exists to verify the target before
// touching it; the test infrastructure uses the full surface to
// provision scratch databases. Stateless; thread safety is whatever
// the connection provides.
type Manager struct{}

// New returns a Manager behind the DatabaseManager interface.
func New() pgseed.DatabaseManager {
	return &Manager{}
}

// Exists reports whether dbName is present in pg_database.
func (m *Manager) Exists(ctx context.Context, conn pgseed.DBConnection, dbName string) (bool, error) {
	var exists bool
	if err := conn.QueryRow(ctx, sqlDatabaseExists, dbName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// Create creates dbName. The name goes through pgx.Identifier, so
// spaces, quotes, and statement fragments stay inside the identifier.
func (m *Manager) Create(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	if err := execDirect(ctx, conn, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	return nil
}

// Drop drops dbName. The server refuses while sessions are attached;
// run TerminateConnections first.
func (m *Manager) Drop(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	if err := execDirect(ctx, conn, "DROP DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		return fmt.Errorf("failed to drop database %q: %w", dbName, err)
	}
	return nil
}

// TerminateConnections kicks every backend attached to dbName except
// our own.
func (m *Manager) TerminateConnections(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	if _, err := conn.Exec(ctx, sqlTerminateBackends, dbName); err != nil {
		return fmt.Errorf("failed to terminate connections to database %q: %w", dbName, err)
	}
	return nil
}

// execDirect runs query on a connection held for the duration. CREATE
// and DROP DATABASE refuse to run inside a transaction, so they get a
// dedicated session instead of the pool's Exec.
func execDirect(ctx context.Context, conn pgseed.DBConnection, query string) error {
	session, err := conn.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer session.Release()

	_, err = session.Exec(ctx, query)
	return err
}

var _ pgseed.DatabaseManager = (*Manager)(nil)

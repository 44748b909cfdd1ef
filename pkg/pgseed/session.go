package pgseed

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionPreparer abstracts session preparation for testability.
type SessionPreparer interface {
	PrepareSession(ctx context.Context, connConfig *ConnectionConfig, tableMap map[string]string, files []FixtureFile, verbose bool) (*Session, error)
}

// Session encapsulates a prepared run: the connection pool, a dedicated
// acquired connection for transactional pipeline work, the introspected
// schema, and the resolved fixture files (empty for dump-only sessions).
//
// Session manages the lifecycle of database resources (pool and connection)
// and ensures proper cleanup through a single Close() method.
//
// Thread-Safety: NOT safe for concurrent use. Each goroutine should have
// its own Session instance.
//
// Lifecycle:
//  1. Created by SessionManager.PrepareSession()
//  2. Used for load, dump, or check operations
//  3. Cleaned up via Close() (idempotent)
//
// Example usage:
//
//	session, err := sessionManager.PrepareSession(ctx, connConfig, tableMap, files, verbose)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()  // Single cleanup call - simple and safe
//
//	// Use session.Pool(), session.Conn(), session.Schema(), session.Files()
type Session struct {
	pool   *pgxpool.Pool
	conn   *pgxpool.Conn
	schema *Schema
	files  []FixtureFile
}

// NewSession creates a new Session instance.
// This is intended to be called by SessionManager, not by external code.
//
// Panics if pool, conn, or schema is nil (programmer error - SessionManager
// should never create a Session with nil resources).
func NewSession(pool *pgxpool.Pool, conn *pgxpool.Conn, schema *Schema, files []FixtureFile) *Session {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}
	if schema == nil {
		panic("schema cannot be nil")
	}

	return &Session{
		pool:   pool,
		conn:   conn,
		schema: schema,
		files:  files,
	}
}

// Pool returns the connection pool for the session.
// The pool is valid until Close() is called.
func (s *Session) Pool() *pgxpool.Pool {
	return s.pool
}

// Conn returns the acquired pooled connection for the session.
// The load pipeline's transactions all run on this connection.
// The connection is valid until Close() is called.
func (s *Session) Conn() *pgxpool.Conn {
	return s.conn
}

// Schema returns the introspected schema for the session.
func (s *Session) Schema() *Schema {
	return s.schema
}

// Files returns the fixture files resolved for the session, in load order.
func (s *Session) Files() []FixtureFile {
	return s.files
}

// Close releases all resources associated with the session.
// This method is idempotent and safe to call multiple times.
//
// Resource cleanup order:
//  1. Release the acquired connection back to the pool
//  2. Close the connection pool
//
// After calling Close(), the Session should not be used.
func (s *Session) Close() error {
	// Release connection first (if not nil)
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}

	// Close pool second (if not nil)
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}

	return nil
}

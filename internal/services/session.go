package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgseed/pgseed/internal/checksum"
	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/internal/schema"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// SessionManager handles session initialization shared between load, dump,
// and check. Responsibility: connect to the target database, acquire the
// session connection, introspect the schema, and bundle it all with the
// resolved fixture files.
//
// SessionManager is thread-safe for concurrent use as long as the injected
// dependencies (connectorFactory, checksums, logger) are also thread-safe.
type SessionManager struct {
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error)
	checksums        checksum.Calculator
	fsProvider       filesystem.FileSystemProvider
	logger           pgseed.Logger
}

// NewSessionManager creates a new SessionManager with all dependencies
// injected. Panics on nil dependencies.
func NewSessionManager(
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error),
	checksums checksum.Calculator,
	logger pgseed.Logger,
) *SessionManager {
	return NewSessionManagerWithFS(connectorFactory, checksums, filesystem.NewOSFileSystem(), logger)
}

// NewSessionManagerWithFS creates a SessionManager with a custom filesystem
// provider, for tests running against in-memory fixtures.
func NewSessionManagerWithFS(
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error),
	checksums checksum.Calculator,
	fsProvider filesystem.FileSystemProvider,
	logger pgseed.Logger,
) *SessionManager {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if checksums == nil {
		panic("checksums cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &SessionManager{
		connectorFactory: connectorFactory,
		checksums:        checksums,
		fsProvider:       fsProvider,
		logger:           logger,
	}
}

// PrepareSession connects to the target database, acquires the session
// connection, and introspects the schema.
//
// The caller is responsible for closing the session: defer session.Close().
//
// All pipeline transactions run on the session's single acquired
// connection; the pool stays available for post-commit work that must not
// share it. With verbose set, fixture checksums are computed and logged so
// a load can be matched against a later check run.
func (sm *SessionManager) PrepareSession(
	ctx context.Context,
	connConfig *pgseed.ConnectionConfig,
	tableMap map[string]string,
	files []pgseed.FixtureFile,
	verbose bool,
) (*pgseed.Session, error) {
	if verbose {
		sm.fingerprintFiles(files)
	}

	sm.logger.Verbose("Connecting to database '%s'", connConfig.Database)

	connector, err := sm.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("database connection failed for %q: %w", connConfig.Database, err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	model, err := sm.introspectSchema(ctx, conn, tableMap)
	if err != nil {
		conn.Release()
		pool.Close()
		return nil, err
	}

	return pgseed.NewSession(pool, conn, model, files), nil
}

// introspectSchema reads the target's catalog into the kind model the
// pipeline works against.
func (sm *SessionManager) introspectSchema(
	ctx context.Context,
	conn *pgxpool.Conn,
	tableMap map[string]string,
) (*pgseed.Schema, error) {
	sm.logger.Verbose("Introspecting schema...")

	inspector := schema.NewInspector(conn, sm.logger)
	model, err := inspector.Inspect(ctx, schema.DefaultSchema, tableMap)
	if err != nil {
		return nil, fmt.Errorf("schema introspection failed: %w", err)
	}

	sm.logger.Verbose("Found %d entity kind(s)", model.Len())
	return model, nil
}

// fingerprintFiles computes and logs each fixture file's checksum in place.
// Failures are logged and left behind as empty checksums; a file that
// cannot be read will fail properly when the decoder opens it.
func (sm *SessionManager) fingerprintFiles(files []pgseed.FixtureFile) {
	for i := range files {
		content, err := sm.fsProvider.ReadFile(files[i].Path)
		if err != nil {
			sm.logger.Warn("Could not checksum %s: %v", files[i].Name, err)
			continue
		}
		files[i].Checksum = sm.checksums.CalculateRaw(content)
		sm.logger.Verbose("Fixture %s sha256=%s", files[i].Name, files[i].Checksum)
	}
}

// Verify SessionManager implements the interface at compile time
var _ pgseed.SessionPreparer = (*SessionManager)(nil)

//go:build conntest || azure

package conntest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgseed/pgseed/internal/checksum"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/db/manager"
	"github.com/pgseed/pgseed/internal/logging"
	"github.com/pgseed/pgseed/internal/services"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

type forceApprover struct{}

func (a *forceApprover) RequestApproval(_ context.Context, _ pgseed.LoadPlan) (bool, error) {
	return true, nil
}

func newTestLoader(t *testing.T) *services.LoadService {
	t.Helper()
	logger := logging.NewNullLogger()

	sessionManager := services.NewSessionManager(
		db.NewConnector,
		checksum.New(),
		logger,
	)

	return services.NewLoadService(
		db.NewConnector,
		&forceApprover{},
		logger,
		sessionManager,
		manager.New(),
	)
}

const loadTargetDDL = `CREATE TABLE app_user (
    id serial PRIMARY KEY,
    name text NOT NULL UNIQUE
)`

// setupLoadTarget creates the target database and its table through the
// auth-aware connector, so the same helper serves password and token tests.
func setupLoadTarget(t *testing.T, config *pgseed.ConnectionConfig, dbName string) {
	t.Helper()
	ctx := context.Background()

	mgr := manager.New()
	mgmt := db.NewPoolAdapter(connectWithConfig(t, config))
	_ = mgr.Drop(ctx, mgmt, dbName) // leftover from an aborted earlier run
	if err := mgr.Create(ctx, mgmt, dbName); err != nil {
		t.Fatalf("create target database: %v", err)
	}

	targetConfig := *config
	targetConfig.Database = dbName
	target := connectWithConfig(t, &targetConfig)
	if _, err := target.Exec(ctx, loadTargetDDL); err != nil {
		t.Fatalf("create target table: %v", err)
	}
}

func connectWithConfig(t *testing.T, config *pgseed.ConnectionConfig) *pgxpool.Pool {
	t.Helper()

	connector, err := db.NewConnector(config)
	if err != nil {
		t.Fatalf("create connector: %v", err)
	}

	pool, err := connector.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return pool
}

func setupFixtureProject(t *testing.T, dir string) {
	t.Helper()
	usersJSON := `[
  {"model": "app.user", "pk": 1, "fields": {"name": "Ada"}},
  {"model": "app.user", "pk": 2, "fields": {"name": "Grace"}}
]`
	err := os.WriteFile(filepath.Join(dir, "users.json"), []byte(usersJSON), 0644)
	if err != nil {
		t.Fatalf("write users.json: %v", err)
	}
}

// cleanupDB drops dbName, kicking attached sessions first. Failures are
// logged, never fatal.
func cleanupDB(t *testing.T, config *pgseed.ConnectionConfig, dbName string) {
	t.Helper()
	ctx := context.Background()

	connector, err := db.NewConnector(config)
	if err != nil {
		t.Logf("cleanup %s: %v", dbName, err)
		return
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		t.Logf("cleanup %s: %v", dbName, err)
		return
	}
	defer pool.Close()

	mgr := manager.New()
	conn := db.NewPoolAdapter(pool)
	_ = mgr.TerminateConnections(ctx, conn, dbName)
	if err := mgr.Drop(ctx, conn, dbName); err != nil {
		t.Logf("cleanup %s: drop: %v", dbName, err)
	}
}

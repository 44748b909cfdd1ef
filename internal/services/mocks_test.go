package services

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

type mockApprover struct {
	approved bool
	err      error
	plans    []pgseed.LoadPlan
}

func (m *mockApprover) RequestApproval(_ context.Context, plan pgseed.LoadPlan) (bool, error) {
	m.plans = append(m.plans, plan)
	return m.approved, m.err
}

// mockSessionPreparer stops the workflow at session preparation. A real
// Session needs live pool resources, so unit tests script an error here and
// assert the stages before it ran; everything past the session is covered
// by the integration tests.
type mockSessionPreparer struct {
	err   error
	calls int

	gotConfig   *pgseed.ConnectionConfig
	gotTableMap map[string]string
	gotFiles    []pgseed.FixtureFile
	gotVerbose  bool
}

func (m *mockSessionPreparer) PrepareSession(_ context.Context, connConfig *pgseed.ConnectionConfig, tableMap map[string]string, files []pgseed.FixtureFile, verbose bool) (*pgseed.Session, error) {
	m.calls++
	m.gotConfig = connConfig
	m.gotTableMap = tableMap
	m.gotFiles = files
	m.gotVerbose = verbose
	return nil, m.err
}

type mockDatabaseManager struct {
	existsResult bool
	existsErr    error
	createErr    error
	dropErr      error
	terminateErr error

	existsCalls []string
}

func (m *mockDatabaseManager) Exists(_ context.Context, _ pgseed.DBConnection, dbName string) (bool, error) {
	m.existsCalls = append(m.existsCalls, dbName)
	return m.existsResult, m.existsErr
}

func (m *mockDatabaseManager) Create(_ context.Context, _ pgseed.DBConnection, _ string) error {
	return m.createErr
}

func (m *mockDatabaseManager) Drop(_ context.Context, _ pgseed.DBConnection, _ string) error {
	return m.dropErr
}

func (m *mockDatabaseManager) TerminateConnections(_ context.Context, _ pgseed.DBConnection, _ string) error {
	return m.terminateErr
}

type mockDBConnection struct {
	execErr error
}

func (m *mockDBConnection) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, m.execErr
}

func (m *mockDBConnection) QueryRow(_ context.Context, _ string, _ ...any) pgseed.Row {
	return &mockRow{}
}

func (m *mockDBConnection) Acquire(_ context.Context) (pgseed.PooledConnection, error) {
	return nil, nil
}

type mockRow struct {
	err error
}

func (m *mockRow) Scan(_ ...any) error {
	return m.err
}

type mockLogger struct{}

func (m *mockLogger) Verbose(_ string, _ ...interface{}) {}
func (m *mockLogger) Info(_ string, _ ...interface{})    {}
func (m *mockLogger) Warn(_ string, _ ...interface{})    {}
func (m *mockLogger) Error(_ string, _ ...interface{})   {}

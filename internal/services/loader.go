package services

import (
	"context"
	"fmt"

	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/internal/fixture"
	"github.com/pgseed/pgseed/internal/loader"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

type managementDBConnFunc func(ctx context.Context, connConfig *pgseed.ConnectionConfig, dbName string) (pgseed.DBConnection, func(), error)

// LoadService implements the Loader interface.
// Thread-Safety: NOT safe for concurrent Load() calls on the same instance.
// Create separate instances for concurrent loads.
type LoadService struct {
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error)
	approver         pgseed.Approver
	logger           pgseed.Logger
	sessionManager   pgseed.SessionPreparer
	dbManager        pgseed.DatabaseManager
	fsProvider       filesystem.FileSystemProvider
	mgmtConnector    managementDBConnFunc
}

// NewLoadService creates a new LoadService with all dependencies injected.
// Panics on nil dependencies; runtime conditions come back as errors.
func NewLoadService(
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error),
	approver pgseed.Approver,
	logger pgseed.Logger,
	sessionManager pgseed.SessionPreparer,
	dbManager pgseed.DatabaseManager,
) *LoadService {
	return NewLoadServiceWithFS(connectorFactory, approver, logger, sessionManager, dbManager, filesystem.NewOSFileSystem())
}

// NewLoadServiceWithFS creates a LoadService with a custom filesystem
// provider, so tests can load from in-memory fixture trees.
func NewLoadServiceWithFS(
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error),
	approver pgseed.Approver,
	logger pgseed.Logger,
	sessionManager pgseed.SessionPreparer,
	dbManager pgseed.DatabaseManager,
	fsProvider filesystem.FileSystemProvider,
) *LoadService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if sessionManager == nil {
		panic("sessionManager cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}

	svc := &LoadService{
		connectorFactory: connectorFactory,
		approver:         approver,
		logger:           logger,
		sessionManager:   sessionManager,
		dbManager:        dbManager,
		fsProvider:       fsProvider,
	}
	svc.mgmtConnector = svc.defaultMgmtConnector
	return svc
}

func (s *LoadService) defaultMgmtConnector(ctx context.Context, connConfig *pgseed.ConnectionConfig, dbName string) (pgseed.DBConnection, func(), error) {
	mgmtConfig := *connConfig
	mgmtConfig.Database = dbName

	connector, err := s.connectorFactory(&mgmtConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to management database: %w", err)
	}

	dbConn := db.NewPoolAdapter(pool)
	cleanup := func() { pool.Close() }
	return dbConn, cleanup, nil
}

// Load executes a load using the provided configuration.
// This method orchestrates the load workflow by calling smaller, focused methods.
func (s *LoadService) Load(ctx context.Context, config pgseed.LoadConfig) (*pgseed.LoadReport, error) {
	connConfig, err := s.validateAndParseConfig(config)
	if err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	files, err := s.locateFixtures(config)
	if err != nil {
		return nil, err
	}

	if err := s.verifyTargetExists(ctx, connConfig, config.DatabaseName, config.ManagementDatabase); err != nil {
		return nil, err
	}

	targetConfig := *connConfig
	targetConfig.Database = config.DatabaseName
	session, err := s.sessionManager.PrepareSession(ctx, &targetConfig, config.TableMap, files, config.Verbose)
	if err != nil {
		return nil, err // Error already wrapped by SessionManager
	}
	defer session.Close()

	records, err := s.decodeFixtures(session.Schema(), session.Files())
	if err != nil {
		return nil, err
	}

	if err := s.requestApproval(ctx, config, session.Files(), records); err != nil {
		return nil, err
	}

	pipeline := loader.NewPipeline(s.logger)
	report, runErr := pipeline.Run(ctx, session.Conn(), session.Schema(), records)
	if report != nil {
		report.Files = session.Files()
	}
	if runErr != nil {
		return report, runErr
	}

	s.logger.Info("✓ Loaded %d record(s) from %d fixture file(s)", report.Records, len(report.Files))
	return report, nil
}

// validateAndParseConfig validates the configuration and parses the connection string.
func (s *LoadService) validateAndParseConfig(config pgseed.LoadConfig) (*pgseed.ConnectionConfig, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s.logger.Verbose("Starting load into database '%s'", config.DatabaseName)
	s.logger.Verbose("Fixture names: %v", config.Names)

	connConfig, err := db.ParseConnectionString(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if connConfig.AppName == "" {
		connConfig.AppName = "pgseed"
	}

	// Apply auth method and cloud credentials from load config
	connConfig.AuthMethod = config.AuthMethod
	connConfig.AzureTenantID = config.AzureTenantID
	connConfig.AzureClientID = config.AzureClientID
	connConfig.AzureClientSecret = config.AzureClientSecret
	connConfig.AWSRegion = config.AWSRegion
	connConfig.GoogleInstance = config.GoogleInstance

	return connConfig, nil
}

// locateFixtures resolves the configured name tokens against the search roots.
func (s *LoadService) locateFixtures(config pgseed.LoadConfig) ([]pgseed.FixtureFile, error) {
	excludes := config.ExcludeDirs
	if excludes == nil {
		excludes = pgseed.DefaultExcludedDirs
	}

	locator, err := fixture.NewLocatorWithFS(s.fsProvider, config.SearchRoots, excludes, s.logger)
	if err != nil {
		return nil, err
	}

	files, err := locator.LocateAll(config.Names)
	if err != nil {
		return nil, err
	}

	s.logger.Verbose("Resolved %d fixture file(s)", len(files))
	return files, nil
}

// verifyTargetExists checks the target database through the management
// database before any session work starts, so a typoed name fails with a
// clear message instead of a low-level connect error.
func (s *LoadService) verifyTargetExists(ctx context.Context, connConfig *pgseed.ConnectionConfig, dbName, mgmtDB string) error {
	if mgmtDB == "" {
		mgmtDB = pgseed.DefaultManagementDB
	}
	s.logger.Verbose("Connecting to management database '%s' to check if target database exists", mgmtDB)

	dbConn, cleanup, err := s.mgmtConnector(ctx, connConfig, mgmtDB)
	if err != nil {
		return err
	}
	defer cleanup()

	exists, err := s.dbManager.Exists(ctx, dbConn, dbName)
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("target database %q does not exist: %w", dbName, pgseed.ErrConnectionFailed)
	}
	return nil
}

// decodeFixtures deserializes every resolved file, concatenating records in
// file order.
func (s *LoadService) decodeFixtures(model *pgseed.Schema, files []pgseed.FixtureFile) ([]*pgseed.EntityRecord, error) {
	decoder := fixture.NewDecoderWithFS(model, s.fsProvider)

	var records []*pgseed.EntityRecord
	for _, file := range files {
		decoded, err := decoder.DecodeFile(file.Path)
		if err != nil {
			return nil, err
		}
		s.logger.Verbose("Decoded %d record(s) from %s", len(decoded), file.Name)
		records = append(records, decoded...)
	}
	return records, nil
}

// requestApproval asks before writing unless the load is forced. A load
// writes directly into target tables with constraints suspended, so the
// prompt names exactly what is about to happen.
func (s *LoadService) requestApproval(ctx context.Context, config pgseed.LoadConfig, files []pgseed.FixtureFile, records []*pgseed.EntityRecord) error {
	if config.Force {
		s.logger.Verbose("Skipping approval (forced)")
		return nil
	}

	plan := pgseed.LoadPlan{
		Database: config.DatabaseName,
		Files:    len(files),
		Records:  len(records),
	}
	approved, err := s.approver.RequestApproval(ctx, plan)
	if err != nil {
		return fmt.Errorf("approval request failed: %w", err)
	}
	if !approved {
		return pgseed.ErrApprovalDenied
	}
	return nil
}

// Verify LoadService implements the interface at compile time
var _ pgseed.Loader = (*LoadService)(nil)

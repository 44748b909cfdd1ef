package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/dump"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// DumpService implements the Dumper interface.
// Thread-Safety: NOT safe for concurrent Dump() calls on the same instance.
// Create separate instances for concurrent dumps.
type DumpService struct {
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error)
	logger           pgseed.Logger
	sessionManager   pgseed.SessionPreparer
	dbManager        pgseed.DatabaseManager
	mgmtConnector    managementDBConnFunc
}

// NewDumpService creates a new DumpService with all dependencies injected.
// Panics on nil dependencies, same boundary as the other services: wiring
// mistakes fail at startup, runtime conditions return errors.
func NewDumpService(
	connectorFactory func(*pgseed.ConnectionConfig) (pgseed.Connector, error),
	logger pgseed.Logger,
	sessionManager pgseed.SessionPreparer,
	dbManager pgseed.DatabaseManager,
) *DumpService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
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

	svc := &DumpService{
		connectorFactory: connectorFactory,
		logger:           logger,
		sessionManager:   sessionManager,
		dbManager:        dbManager,
	}
	svc.mgmtConnector = svc.defaultMgmtConnector
	return svc
}

func (s *DumpService) defaultMgmtConnector(ctx context.Context, connConfig *pgseed.ConnectionConfig, dbName string) (pgseed.DBConnection, func(), error) {
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

// Dump exports the configured kinds as fixture file series.
func (s *DumpService) Dump(ctx context.Context, config pgseed.DumpConfig) (*pgseed.DumpReport, error) {
	start := time.Now()

	connConfig, err := s.validateAndParseConfig(config)
	if err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	if err := s.verifyTargetExists(ctx, connConfig, config.DatabaseName, config.ManagementDatabase); err != nil {
		return nil, err
	}

	targetConfig := *connConfig
	targetConfig.Database = config.DatabaseName
	session, err := s.sessionManager.PrepareSession(ctx, &targetConfig, config.TableMap, nil, config.Verbose)
	if err != nil {
		return nil, err // Error already wrapped by SessionManager
	}
	defer session.Close()

	kinds, err := resolveDumpKinds(session.Schema(), config)
	if err != nil {
		return nil, err
	}

	exporter := dump.NewExporter(s.logger)
	writer := dump.NewSeriesWriter(config.OutputDir, s.logger)
	opts := dump.Options{ChunkSize: config.ChunkSize, NaturalKeys: config.NaturalKeys}

	report := &pgseed.DumpReport{Kinds: len(kinds)}
	for _, info := range kinds {
		chunks, err := exporter.ExportKind(ctx, session.Pool(), session.Schema(), info, opts)
		if err != nil {
			return nil, err
		}
		paths, err := writer.Write(info.Kind, chunks)
		if err != nil {
			return nil, err
		}
		for _, chunk := range chunks {
			report.Records += chunk.Records
		}
		report.Files = append(report.Files, paths...)
	}
	report.Duration = time.Since(start)

	s.logger.Info("✓ Dumped %d record(s) across %d kind(s) into %d file(s)",
		report.Records, report.Kinds, len(report.Files))
	return report, nil
}

func (s *DumpService) validateAndParseConfig(config pgseed.DumpConfig) (*pgseed.ConnectionConfig, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s.logger.Verbose("Starting dump from database '%s' into %s", config.DatabaseName, config.OutputDir)

	connConfig, err := db.ParseConnectionString(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if connConfig.AppName == "" {
		connConfig.AppName = "pgseed"
	}

	connConfig.AuthMethod = config.AuthMethod
	connConfig.AzureTenantID = config.AzureTenantID
	connConfig.AzureClientID = config.AzureClientID
	connConfig.AzureClientSecret = config.AzureClientSecret
	connConfig.AWSRegion = config.AWSRegion
	connConfig.GoogleInstance = config.GoogleInstance

	return connConfig, nil
}

func (s *DumpService) verifyTargetExists(ctx context.Context, connConfig *pgseed.ConnectionConfig, dbName, mgmtDB string) error {
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

// resolveDumpKinds maps the configured kind tags to schema infos, or every
// known kind under All. Duplicate tags collapse to one export.
func resolveDumpKinds(model *pgseed.Schema, config pgseed.DumpConfig) ([]*pgseed.KindInfo, error) {
	if config.All {
		return model.Kinds(), nil
	}

	seen := make(map[pgseed.Kind]bool, len(config.Kinds))
	kinds := make([]*pgseed.KindInfo, 0, len(config.Kinds))
	for _, tag := range config.Kinds {
		kind, err := pgseed.ParseKind(tag)
		if err != nil {
			return nil, fmt.Errorf("invalid kind tag %q: %w", tag, pgseed.ErrInvalidConfig)
		}
		info, ok := model.Resolve(kind)
		if !ok {
			return nil, fmt.Errorf("kind %q matches no table in the target database: %w", tag, pgseed.ErrInvalidConfig)
		}
		if seen[info.Kind] {
			continue
		}
		seen[info.Kind] = true
		kinds = append(kinds, info)
	}
	return kinds, nil
}

// Verify DumpService implements the interface at compile time
var _ pgseed.Dumper = (*DumpService)(nil)

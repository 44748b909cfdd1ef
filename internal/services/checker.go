package services

import (
	"context"
	"fmt"

	"github.com/pgseed/pgseed/internal/checksum"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/internal/fixture"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// CheckService implements the Checker interface.
//
// Without a connection string the check is offline: fixtures are located
// and parsed structurally. With one, every field binding is validated
// against the live schema, exactly as a load would read the files.
type CheckService struct {
	logger         pgseed.Logger
	sessionManager pgseed.SessionPreparer
	checksums      checksum.Calculator
	fsProvider     filesystem.FileSystemProvider
}

// NewCheckService creates a new CheckService with all dependencies injected.
// Panics on nil dependencies.
func NewCheckService(
	logger pgseed.Logger,
	sessionManager pgseed.SessionPreparer,
	checksums checksum.Calculator,
) *CheckService {
	return NewCheckServiceWithFS(logger, sessionManager, checksums, filesystem.NewOSFileSystem())
}

// NewCheckServiceWithFS creates a CheckService with a custom filesystem
// provider, so tests can check in-memory fixture trees.
func NewCheckServiceWithFS(
	logger pgseed.Logger,
	sessionManager pgseed.SessionPreparer,
	checksums checksum.Calculator,
	fsProvider filesystem.FileSystemProvider,
) *CheckService {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if sessionManager == nil {
		panic("sessionManager cannot be nil")
	}
	if checksums == nil {
		panic("checksums cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}

	return &CheckService{
		logger:         logger,
		sessionManager: sessionManager,
		checksums:      checksums,
		fsProvider:     fsProvider,
	}
}

// Check locates and parses the configured fixtures without loading them.
func (s *CheckService) Check(ctx context.Context, config pgseed.CheckConfig) (*pgseed.CheckReport, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
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

	if config.Checksum {
		if err := s.fillChecksums(files); err != nil {
			return nil, err
		}
	}

	var records int
	if config.ConnectionString == "" {
		records, err = s.checkOffline(files)
	} else {
		records, err = s.checkOnline(ctx, config, files)
	}
	if err != nil {
		return nil, err
	}

	mode := "offline"
	if config.ConnectionString != "" {
		mode = "against the live schema"
	}
	s.logger.Info("✓ Checked %d record(s) in %d fixture file(s) %s", records, len(files), mode)

	return &pgseed.CheckReport{Files: files, Records: records}, nil
}

func (s *CheckService) locateFixtures(config pgseed.CheckConfig) ([]pgseed.FixtureFile, error) {
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

func (s *CheckService) fillChecksums(files []pgseed.FixtureFile) error {
	for i := range files {
		content, err := s.fsProvider.ReadFile(files[i].Path)
		if err != nil {
			return fmt.Errorf("failed to read fixture %s for checksum: %w", files[i].Path, err)
		}
		files[i].Checksum = s.checksums.CalculateRaw(content)
	}
	return nil
}

// checkOffline parses every file structurally, with no schema in play.
func (s *CheckService) checkOffline(files []pgseed.FixtureFile) (int, error) {
	validator := fixture.NewValidatorWithFS(s.fsProvider)

	var records int
	for _, file := range files {
		count, err := validator.ValidateFile(file.Path)
		if err != nil {
			return 0, err
		}
		s.logger.Verbose("Parsed %d record(s) from %s", count, file.Name)
		records += count
	}
	return records, nil
}

// checkOnline decodes every file against the introspected schema, so a
// field that matches no column fails here instead of mid-load.
func (s *CheckService) checkOnline(ctx context.Context, config pgseed.CheckConfig, files []pgseed.FixtureFile) (int, error) {
	connConfig, err := db.ParseConnectionString(config.ConnectionString)
	if err != nil {
		return 0, fmt.Errorf("failed to parse connection string: %w", err)
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
	if config.DatabaseName != "" {
		connConfig.Database = config.DatabaseName
	}

	session, err := s.sessionManager.PrepareSession(ctx, connConfig, config.TableMap, files, config.Verbose)
	if err != nil {
		return 0, err // Error already wrapped by SessionManager
	}
	defer session.Close()

	decoder := fixture.NewDecoderWithFS(session.Schema(), s.fsProvider)

	var records int
	for _, file := range files {
		decoded, err := decoder.DecodeFile(file.Path)
		if err != nil {
			return 0, err
		}
		s.logger.Verbose("Decoded %d record(s) from %s", len(decoded), file.Name)
		records += len(decoded)
	}
	return records, nil
}

// Verify CheckService implements the interface at compile time
var _ pgseed.Checker = (*CheckService)(nil)

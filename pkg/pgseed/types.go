package pgseed

import (
	"errors"
	"fmt"
	"time"
)

// LoadConfig contains all parameters needed for a load operation.
type LoadConfig struct {
	// Names are the fixture name tokens to load, in order. A token is either
	// a bare fixture name ("users") or a chunk-series pattern ("users_*").
	Names []string

	// SearchRoots are the directories searched for fixture files, in
	// precedence order. Defaults to the current directory.
	SearchRoots []string

	// ExcludeDirs are directory names skipped during the fixture search.
	ExcludeDirs []string

	// DatabaseName is the target database name
	DatabaseName string

	// ConnectionString is the PostgreSQL connection string (URI or keyword/value format)
	// After CLI resolution, this contains the TARGET database connection
	ConnectionString string

	// ManagementDatabase is the database used for the target-existence
	// check. Empty means DefaultManagementDB.
	ManagementDatabase string

	// TableMap overrides the kind-tag-to-table naming convention,
	// e.g. "shop.product" -> "store_products".
	TableMap map[string]string

	// Force bypasses interactive approval before writing to the database
	Force bool

	// Timeout is the global timeout for the entire load
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is the RDS region (used when AuthMethod is AuthMethodAWSIAM).
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name in
	// project:region:instance form (used when AuthMethod is AuthMethodGoogleIAM).
	GoogleInstance string
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if len(c.Names) == 0 {
		errs = append(errs, fmt.Errorf("at least one fixture name is required: %w", ErrInvalidConfig))
	}

	if c.DatabaseName == "" {
		errs = append(errs, fmt.Errorf("DatabaseName is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	for tag := range c.TableMap {
		if _, err := ParseKind(tag); err != nil {
			errs = append(errs, fmt.Errorf("invalid table map key %q: %w", tag, ErrInvalidConfig))
		}
	}

	return errors.Join(errs...)
}

// DumpConfig contains all parameters needed for a dump operation.
type DumpConfig struct {
	// Kinds are the kind tags to export ("shop.product"). Ignored when All is set.
	Kinds []string

	// All exports every kind known to the schema.
	All bool

	// OutputDir is the directory fixture files are written into.
	OutputDir string

	// ChunkSize is the maximum number of records per output file.
	ChunkSize int

	// NaturalKeys replaces foreign-key values with the target row's
	// unique-key tuple wherever the target kind has one.
	NaturalKeys bool

	// DatabaseName is the target database name
	DatabaseName string

	// ConnectionString is the PostgreSQL connection string (URI or keyword/value format)
	ConnectionString string

	// ManagementDatabase is the database used for the target-existence
	// check. Empty means DefaultManagementDB.
	ManagementDatabase string

	// TableMap overrides the kind-tag-to-table naming convention.
	TableMap map[string]string

	// Timeout is the global timeout for the entire dump
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is the RDS region (used when AuthMethod is AuthMethodAWSIAM).
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name in
	// project:region:instance form (used when AuthMethod is AuthMethodGoogleIAM).
	GoogleInstance string
}

// Validate checks if the DumpConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *DumpConfig) Validate() error {
	var errs []error

	if len(c.Kinds) == 0 && !c.All {
		errs = append(errs, fmt.Errorf("at least one kind tag (or --all) is required: %w", ErrInvalidConfig))
	}

	for _, tag := range c.Kinds {
		if _, err := ParseKind(tag); err != nil {
			errs = append(errs, fmt.Errorf("invalid kind tag %q: %w", tag, ErrInvalidConfig))
		}
	}

	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("OutputDir is required: %w", ErrInvalidConfig))
	}

	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive: %w", ErrInvalidConfig))
	}

	if c.DatabaseName == "" {
		errs = append(errs, fmt.Errorf("DatabaseName is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// CheckConfig contains all parameters needed for a check operation.
//
// A check with an empty ConnectionString validates fixture structure offline.
// With a connection, field bindings are validated against the live schema.
type CheckConfig struct {
	// Names are the fixture name tokens to check (bare names or series patterns).
	Names []string

	// SearchRoots are the directories searched for fixture files.
	SearchRoots []string

	// ExcludeDirs are directory names skipped during the fixture search.
	ExcludeDirs []string

	// Checksum prints the SHA-256 checksum of every resolved file.
	Checksum bool

	// DatabaseName is the target database name (optional; enables live-schema checks)
	DatabaseName string

	// ConnectionString is the PostgreSQL connection string (optional)
	ConnectionString string

	// TableMap overrides the kind-tag-to-table naming convention.
	TableMap map[string]string

	// Timeout is the global timeout for the check
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is the RDS region (used when AuthMethod is AuthMethodAWSIAM).
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name in
	// project:region:instance form (used when AuthMethod is AuthMethodGoogleIAM).
	GoogleInstance string
}

// Validate checks if the CheckConfig has all required fields and valid values.
func (c *CheckConfig) Validate() error {
	var errs []error

	if len(c.Names) == 0 {
		errs = append(errs, fmt.Errorf("at least one fixture name is required: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Client certificate paths (used when AuthMethod is AuthMethodCertificate,
	// or alongside any method when the server requires client certs)
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is the RDS region (used when AuthMethod is AuthMethodAWSIAM).
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name in
	// project:region:instance form (used when AuthMethod is AuthMethodGoogleIAM).
	GoogleInstance string
}

// DeepCopy returns a copy of the config whose AdditionalParams map is
// independent of the original. Token connectors mutate per-connection
// copies and must never alias the resolved config.
func (c ConnectionConfig) DeepCopy() ConnectionConfig {
	cp := c
	if c.AdditionalParams != nil {
		cp.AdditionalParams = make(map[string]string, len(c.AdditionalParams))
		for k, v := range c.AdditionalParams {
			cp.AdditionalParams[k] = v
		}
	}
	return cp
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard AuthMethod = iota // Username/Password
	AuthMethodCertificate                // mTLS
	AuthMethodAWSIAM                     // AWS IAM Database Authentication
	AuthMethodGoogleIAM                  // Google Cloud SQL IAM
	AuthMethodAzureEntraID               // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// FixtureFile represents a fixture file resolved by the locator.
// All paths are absolute.
type FixtureFile struct {
	// Path is the absolute path of the file.
	Path string

	// Name is the file name including extension: "users_0.json".
	Name string

	// Stem is the file name without extension: "users_0". Name tokens are
	// matched against stems, so extensions never matter for lookup.
	Stem string

	// Series is the base name of the chunk series this file belongs to
	// ("users" for "users_0"), or "" for a standalone fixture.
	Series string

	// SeriesIndex is the zero-based chunk index, or -1 for a standalone fixture.
	SeriesIndex int

	// SizeBytes is the file size in bytes.
	SizeBytes int64

	// ModifiedAt is the last modification time.
	ModifiedAt time.Time

	// Checksum is the SHA-256 of the file content. Empty until computed;
	// only the check command and verbose load paths compute it.
	Checksum string
}

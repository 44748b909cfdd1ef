package db

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pgseed/pgseed/internal/config"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// GranularConnFlags carries the libpq-style connection flags (-h, -p,
// -U, -d). There is deliberately no password field: passwords travel
// via $PGPASSWORD, ~/.pgpass, or a connection string, never argv.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether the user supplied any server-addressing flag.
// Database does not count: -d also overrides the target inside a
// --connection string, so it may ride along without conflicting.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// AzureFlags carries the Azure Entra ID selection. The client secret
// stays environment-only; there is no flag for it.
type AzureFlags struct {
	Enabled  bool   // --azure
	TenantID string // overrides AZURE_TENANT_ID
	ClientID string // overrides AZURE_CLIENT_ID
}

// IsEmpty reports whether any Azure flag was set.
func (a *AzureFlags) IsEmpty() bool {
	return a == nil || (!a.Enabled && a.TenantID == "" && a.ClientID == "")
}

// AWSFlags carries the RDS IAM selection.
type AWSFlags struct {
	Enabled bool   // --aws
	Region  string // --aws-region, overrides $AWS_REGION
}

// IsEmpty reports whether any AWS flag was set.
func (a *AWSFlags) IsEmpty() bool {
	return a == nil || (!a.Enabled && a.Region == "")
}

// GoogleFlags carries the Cloud SQL IAM selection.
type GoogleFlags struct {
	Enabled  bool   // --google
	Instance string // --google-instance (project:region:instance)
}

// IsEmpty reports whether any Google flag was set.
func (g *GoogleFlags) IsEmpty() bool {
	return g == nil || (!g.Enabled && g.Instance == "")
}

// CertFlags carries the client certificate paths for mTLS.
type CertFlags struct {
	SSLCert     string // --ssl-cert, overrides PGSSLCERT
	SSLKey      string // --ssl-key, overrides PGSSLKEY
	SSLRootCert string // --ssl-root-cert, overrides PGSSLROOTCERT
}

// IsEmpty reports whether any certificate flag was set.
func (c *CertFlags) IsEmpty() bool {
	return c == nil || (c.SSLCert == "" && c.SSLKey == "" && c.SSLRootCert == "")
}

// EnvVars is a snapshot of the connection-related environment: the
// libpq PG* family plus the cloud SDK credential variables.
// https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST        string
	PGPORT        string
	PGUSER        string
	PGPASSWORD    string
	PGDATABASE    string
	PGSSLMODE     string
	PGSSLCERT     string
	PGSSLKEY      string
	PGSSLROOTCERT string

	// DATABASE_URL is the Heroku/Rails-style full connection string.
	DATABASE_URL string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string

	AWS_REGION string
}

// LoadFromEnvironment snapshots the variables above from the process
// environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		PGSSLCERT:           os.Getenv("PGSSLCERT"),
		PGSSLKEY:            os.Getenv("PGSSLKEY"),
		PGSSLROOTCERT:       os.Getenv("PGSSLROOTCERT"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
	}
}

var errConnStringConflict = errors.New(
	"cannot specify both --connection and granular flags (-h, -p, -U)\n" +
		"Choose one approach:\n" +
		"  1. Connection string: --connection \"postgresql://user@localhost:5432/postgres\"\n" +
		"  2. Granular flags: -h localhost -p 5432 -U myuser -d mydb\n" +
		"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser")

// ResolveConnectionParams folds every connection source into one
// config, with libpq-style precedence:
//
//	--connection > granular flags > PG* environment > DATABASE_URL >
//	pgseed.yaml > built-in defaults (localhost:5432, sslmode=prefer)
//
// Supplying --connection together with granular server flags is
// rejected outright rather than silently merged; -d is exempt because
// it names the load target, not the server.
//
// Cloud selections (--azure/--aws/--google, or AZURE_* variables on
// their own) switch the AuthMethod and attach the provider fields. At
// most one provider may be active. A client cert plus key, from flags
// or PGSSLCERT/PGSSLKEY, switches to certificate auth.
//
// The second return value is the maintenance database: the connection
// string's database when one was given, otherwise pgseed.yaml's
// management_database, otherwise "postgres".
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	azureFlags *AzureFlags,
	awsFlags *AWSFlags,
	googleFlags *GoogleFlags,
	certFlags *CertFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgseed.ConnectionConfig, string, error) {
	granularFlags = nonNil(granularFlags)
	azureFlags = nonNil(azureFlags)
	awsFlags = nonNil(awsFlags)
	googleFlags = nonNil(googleFlags)
	certFlags = nonNil(certFlags)
	envVars = nonNil(envVars)

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, "", errConnStringConflict
	}
	if err := checkCloudConflicts(azureFlags, awsFlags, googleFlags); err != nil {
		return nil, "", err
	}

	var (
		connConfig    *pgseed.ConnectionConfig
		maintenanceDB string
		err           error
	)
	switch {
	case connStringFlag != "":
		connConfig, maintenanceDB, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		connConfig, maintenanceDB, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		connConfig, maintenanceDB, err = resolveFromGranularParams(granularFlags, envVars, projectConfig)
	}
	if err != nil {
		return nil, "", err
	}

	applyCertFlags(connConfig, certFlags, envVars, projectConfig)

	switch {
	case !awsFlags.IsEmpty():
		applyAWSAuth(connConfig, awsFlags, envVars, projectConfig)
	case !googleFlags.IsEmpty():
		applyGoogleAuth(connConfig, googleFlags, projectConfig)
	default:
		applyAzureAuth(connConfig, azureFlags, envVars)
	}

	return connConfig, maintenanceDB, nil
}

// nonNil swaps nil option structs for their zero value so the
// resolution paths can read fields without nil checks.
func nonNil[T any](p *T) *T {
	if p == nil {
		return new(T)
	}
	return p
}

// checkCloudConflicts rejects simultaneous cloud provider selections.
func checkCloudConflicts(azure *AzureFlags, aws *AWSFlags, google *GoogleFlags) error {
	selected := 0
	for _, picked := range []bool{!azure.IsEmpty(), !aws.IsEmpty(), !google.IsEmpty()} {
		if picked {
			selected++
		}
	}
	if selected > 1 {
		return errors.New("at most one cloud auth provider may be selected (--azure, --aws, --google)")
	}
	return nil
}

// projectConnection unwraps the yaml connection block, tolerating a
// missing config file.
func projectConnection(projectConfig *config.ProjectConfig) config.ConnectionConfig {
	if projectConfig == nil {
		return config.ConnectionConfig{}
	}
	return projectConfig.Connection
}

// applyAzureAuth switches to Entra ID auth when --azure was given or
// any AZURE_* credential is present. Flags beat environment variables
// for the tenant and client IDs.
func applyAzureAuth(connConfig *pgseed.ConnectionConfig, flags *AzureFlags, env *EnvVars) {
	tenantID := firstNonEmpty(flags.TenantID, env.AZURE_TENANT_ID)
	clientID := firstNonEmpty(flags.ClientID, env.AZURE_CLIENT_ID)

	if !flags.Enabled && tenantID == "" && clientID == "" {
		return
	}

	connConfig.AuthMethod = pgseed.AuthMethodAzureEntraID
	connConfig.AzureTenantID = tenantID
	connConfig.AzureClientID = clientID
	// Service principal auth reads the secret from the environment only
	connConfig.AzureClientSecret = env.AZURE_CLIENT_SECRET
}

// applyAWSAuth switches to RDS IAM auth. Region: flag > $AWS_REGION >
// pgseed.yaml.
func applyAWSAuth(connConfig *pgseed.ConnectionConfig, flags *AWSFlags, env *EnvVars, projectConfig *config.ProjectConfig) {
	connConfig.AuthMethod = pgseed.AuthMethodAWSIAM
	connConfig.AWSRegion = firstNonEmpty(flags.Region, env.AWS_REGION, projectConnection(projectConfig).AWSRegion)
}

// applyGoogleAuth switches to Cloud SQL IAM auth. Instance: flag >
// pgseed.yaml.
func applyGoogleAuth(connConfig *pgseed.ConnectionConfig, flags *GoogleFlags, projectConfig *config.ProjectConfig) {
	connConfig.AuthMethod = pgseed.AuthMethodGoogleIAM
	connConfig.GoogleInstance = firstNonEmpty(flags.Instance, projectConnection(projectConfig).GoogleInstance)
}

// applyCertFlags attaches client certificate paths, each resolved
// independently: flag > connection string > PGSSL* > pgseed.yaml. A
// cert and key together imply certificate auth; a root cert alone is
// just server verification.
func applyCertFlags(connConfig *pgseed.ConnectionConfig, flags *CertFlags, envVars *EnvVars, projectConfig *config.ProjectConfig) {
	pc := projectConnection(projectConfig)

	connConfig.SSLCert = firstNonEmpty(flags.SSLCert, connConfig.SSLCert, envVars.PGSSLCERT, pc.SSLCert)
	connConfig.SSLKey = firstNonEmpty(flags.SSLKey, connConfig.SSLKey, envVars.PGSSLKEY, pc.SSLKey)
	connConfig.SSLRootCert = firstNonEmpty(flags.SSLRootCert, connConfig.SSLRootCert, envVars.PGSSLROOTCERT, pc.SSLRootCert)

	if connConfig.SSLCert != "" && connConfig.SSLKey != "" {
		connConfig.AuthMethod = pgseed.AuthMethodCertificate
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveFromConnectionString parses connStr and derives the
// maintenance database from its database component. The load target
// arrives separately through --database; the string's database is
// where server-level work (existence checks, scratch sessions) runs.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*pgseed.ConnectionConfig, string, error) {
	connConfig, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("invalid connection string: %w", err)
	}

	// libpq reads environment variables as fallbacks for parameters the
	// string leaves out
	connConfig.SSLMode = firstNonEmpty(connConfig.SSLMode, envVars.PGSSLMODE, "prefer")

	maintenanceDB := firstNonEmpty(connConfig.Database, pgseed.DefaultManagementDB)
	return connConfig, maintenanceDB, nil
}

// resolveFromGranularParams builds the config from flags, environment,
// and pgseed.yaml, each field independently taking the first source
// that names it: flag > PG* variable > yaml > default. The username
// bottoms out at the invoking OS user, matching psql.
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*pgseed.ConnectionConfig, string, error) {
	pc := projectConnection(projectConfig)

	port, err := resolvePort(flags.Port, envVars.PGPORT, pc.Port)
	if err != nil {
		return nil, "", err
	}

	cfg := &pgseed.ConnectionConfig{
		Host:             firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost"),
		Port:             port,
		Username:         firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, osUser()),
		Password:         envVars.PGPASSWORD,
		Database:         firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database),
		SSLMode:          firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer"),
		AuthMethod:       pgseed.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	// The granular path never names a maintenance database directly;
	// pgseed.yaml may, and "postgres" is the fallback.
	maintenanceDB := firstNonEmpty(pc.ManagementDatabase, pgseed.DefaultManagementDB)
	return cfg, maintenanceDB, nil
}

// resolvePort picks the first port source that is set. Only $PGPORT can
// fail, by not being a number.
func resolvePort(flag int, env string, project int) (int, error) {
	switch {
	case flag != 0:
		return flag, nil
	case env != "":
		port, err := strconv.Atoi(env)
		if err != nil {
			return 0, fmt.Errorf("invalid $PGPORT value %q: must be an integer", env)
		}
		return port, nil
	case project != 0:
		return project, nil
	default:
		return 5432, nil
	}
}

// osUser is the libpq-style username default of last resort.
func osUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}

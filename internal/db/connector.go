package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgseed/pgseed/internal/retry"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Pool sizing shared by every connector.
const (
	// DefaultMaxConns limits concurrent connections to prevent resource exhaustion
	// during long-running loads.
	DefaultMaxConns = 5

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps connections alive during long loads
	// to avoid reconnection overhead.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// NewConnector picks the Connector implementation for the config's auth
// method. Certificate auth rides on the standard connector; the certificate
// paths travel in the connection string.
func NewConnector(config *pgseed.ConnectionConfig) (pgseed.Connector, error) {
	switch config.AuthMethod {
	case pgseed.AuthMethodStandard, pgseed.AuthMethodCertificate:
		return NewStandardConnector(config), nil

	case pgseed.AuthMethodAWSIAM:
		endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)
		provider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
		}
		return NewTokenBasedConnector(config, provider, "AWS IAM"), nil

	case pgseed.AuthMethodGoogleIAM:
		if config.GoogleInstance == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance)")
		}
		if config.Username == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U)")
		}
		return NewGoogleCloudSQLConnector(config, config.GoogleInstance), nil

	case pgseed.AuthMethodAzureEntraID:
		provider, err := azureTokenProvider(config)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, "Azure"), nil

	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgseed.ErrUnsupportedAuthMethod)
	}
}

// azureTokenProvider prefers Service Principal credentials when the full
// tenant/client/secret trio is present and otherwise falls back to the
// DefaultAzureCredential chain (environment, managed identity, Azure CLI).
func azureTokenProvider(config *pgseed.ConnectionConfig) (TokenProvider, error) {
	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		provider, err := NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
		return provider, nil
	}

	provider, err := NewAzureDefaultCredentialProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
	}
	return provider, nil
}

// StandardConnector authenticates with whatever credentials the connection
// string carries (password, .pgpass, client certificates) and retries
// transient failures.
type StandardConnector struct {
	config        *pgseed.ConnectionConfig
	retryExecutor *retry.Executor
}

// NewStandardConnector builds the password-auth connector for config.
// Retry behavior uses pgseed defaults: DefaultRetryMaxAttempts attempts,
// exponential backoff starting at DefaultRetryInitialDelay, max DefaultRetryMaxDelay.
func NewStandardConnector(config *pgseed.ConnectionConfig) *StandardConnector {
	return &StandardConnector{
		config:        config,
		retryExecutor: newRetryExecutor(),
	}
}

// Connect establishes a connection pool, retrying transient failures.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := BuildConnectionString(c.config)

	var pool *pgxpool.Pool
	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		p, err := openPool(ctx, connStr, c.config)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// newRetryExecutor builds the retry policy every connector shares:
// exponential backoff over the pgseed default attempt and delay settings,
// retrying only errors the PostgreSQL classifier marks transient.
func newRetryExecutor() *retry.Executor {
	return retry.NewExecutor(
		retry.NewPostgreSQLErrorClassifier(),
		retry.NewExponentialBackoff(pgseed.DefaultRetryMaxAttempts,
			retry.WithInitialDelay(pgseed.DefaultRetryInitialDelay),
			retry.WithMaxDelay(pgseed.DefaultRetryMaxDelay),
		),
	)
}

// openPool parses connStr, applies the shared pool settings, dials, and
// verifies the connection with a ping. Dial and ping failures come back
// through wrapConnectionError.
func openPool(ctx context.Context, connStr string, cfg *pgseed.ConnectionConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	configurePool(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}
	return pool, nil
}

func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		fmt.Println(notice.Message)
	}
}

// connectionHint maps a family of low-level connection failures to guidance
// the operator can act on.
type connectionHint struct {
	anyOf  []string
	advise func(host string, port int, database string) string
}

// Ordered by specificity; the first matching family wins.
var connectionHints = []connectionHint{
	{
		anyOf: []string{"connection refused", "actively refused"},
		advise: func(host string, port int, _ string) string {
			return fmt.Sprintf(`connection refused to %s:%d

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection`, host, port, host, port)
		},
	},
	{
		anyOf: []string{"no such host", "no host"},
		advise: func(host string, _ int, _ string) string {
			return fmt.Sprintf(`cannot resolve host %q

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue`, host)
		},
	},
	{
		anyOf: []string{"password authentication failed"},
		advise: func(_ string, _ int, database string) string {
			return fmt.Sprintf(`password authentication failed for database %q

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to the database`, database)
		},
	},
	{
		anyOf: []string{"does not exist"},
		advise: func(_ string, _ int, database string) string {
			return fmt.Sprintf(`database %q does not exist

Fixtures are only loaded into existing databases. Create it first:
  createdb %s`, database, database)
		},
	},
	{
		anyOf: []string{"timeout", "timed out"},
		advise: func(host string, port int, _ string) string {
			return fmt.Sprintf(`connection timed out to %s:%d

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)`, host, port)
		},
	},
	{
		anyOf: []string{"ssl", "tls"},
		advise: func(_ string, _ int, _ string) string {
			return `SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)
  - Client certificates missing (check --ssl-cert, --ssl-key)`
		},
	},
	{
		anyOf: []string{"too many connections"},
		advise: func(_ string, _ int, database string) string {
			return fmt.Sprintf(`too many connections to database %q

Possible causes:
  - Connection pool exhausted on server
  - max_connections limit reached in postgresql.conf
  - Stale connections from previous runs

Try: SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s';`, database, database)
		},
	},
}

// wrapConnectionError turns raw pgx connection errors into actionable
// guidance. The result chains both the original error and
// pgseed.ErrConnectionFailed so callers can map the failure to an exit code.
func wrapConnectionError(err error, host string, port int, database string) error {
	err = fmt.Errorf("%w: %w", pgseed.ErrConnectionFailed, err)

	errStr := strings.ToLower(err.Error())
	matches := func(needle string) bool { return strings.Contains(errStr, needle) }
	for _, hint := range connectionHints {
		if slices.ContainsFunc(hint.anyOf, matches) {
			return fmt.Errorf("%s\n\nOriginal error: %w", hint.advise(host, port, database), err)
		}
	}
	return fmt.Errorf("failed to connect to database: %w", err)
}

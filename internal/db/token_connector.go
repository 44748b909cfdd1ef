package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgseed/pgseed/internal/retry"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// tokenExpiryWarning is how close to expiry a freshly issued token may be
// before the connector warns that long loads could outlive it.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector serves the cloud providers that authenticate with
// short-lived tokens (AWS IAM, Azure Entra ID). Each connection attempt
// acquires a fresh token from the TokenProvider and presents it as the
// PostgreSQL password.
type TokenBasedConnector struct {
	config        *pgseed.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
}

// NewTokenBasedConnector wires a TokenProvider into a Connector.
// providerName labels the provider in warnings and errors, "AWS IAM" or
// "Azure".
func NewTokenBasedConnector(config *pgseed.ConnectionConfig, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newRetryExecutor(),
		providerName:  providerName,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		connStr, err := c.connStringWithToken(ctx)
		if err != nil {
			return err
		}
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

// connStringWithToken acquires a fresh token and builds a connection string
// carrying it as the password. The shared config is never mutated; a retry
// after token expiry must not see a stale password.
func (c *TokenBasedConnector) connStringWithToken(ctx context.Context) (string, error) {
	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
	}

	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
		fmt.Printf("Warning: %s token expires in %v\n", c.providerName, remaining.Round(time.Second))
	}

	withToken := c.config.DeepCopy()
	withToken.Password = token
	return BuildConnectionString(&withToken), nil
}

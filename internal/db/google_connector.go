package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// GoogleCloudSQLConnector connects to Google Cloud SQL with IAM database
// authentication through the Cloud SQL Go Connector.
//
// Implements io.Closer; the caller must Close() after the pool is closed to
// release the Cloud SQL dialer resources.
type GoogleCloudSQLConnector struct {
	config   *pgseed.ConnectionConfig
	instance string
	dialer   *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector creates a connector for instance, the
// connection name in project:region:instance form.
func NewGoogleCloudSQLConnector(config *pgseed.ConnectionConfig, instance string) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{config: config, instance: instance}
}

// Connect establishes a connection pool via the Cloud SQL dialer, which
// handles authentication, TLS, and routing to the instance. The dialer is
// retained for Close(); it stays open as long as the pool does.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w", err)
	}

	pool, err := c.openViaDialer(ctx, dialer)
	if err != nil {
		dialer.Close()
		return nil, err
	}

	c.dialer = dialer
	return pool, nil
}

func (c *GoogleCloudSQLConnector) openViaDialer(ctx context.Context, dialer *cloudsqlconn.Dialer) (*pgxpool.Pool, error) {
	// sslmode=disable is correct here: the dialer tunnels every connection
	// over its own mTLS channel, so the in-process link stays plain.
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		c.instance, c.config.Username, c.config.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}
	configurePool(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Close releases the dialer. Call it only after the pool from Connect
// is closed.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer == nil {
		return nil
	}
	err := c.dialer.Close()
	c.dialer = nil
	return err
}

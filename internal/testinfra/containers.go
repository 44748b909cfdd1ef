package testinfra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage    = "postgres:17"
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "postgres"

	// Paths fixed by the testcontainers postgres module: WithSSLCert
	// copies the bundle under containerCertDir and installs the ssl
	// entrypoint script.
	containerCertDir  = "/tmp/testcontainers-go/postgres"
	sslEntrypointPath = "/usr/local/bin/docker-entrypoint-ssl.bash"
)

// PostgresContainer couples a running container with the connection
// string the tests dial.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnString string
}

// runPostgres starts the shared test image with the stock credentials
// plus any variant-specific customizers.
func runPostgres(ctx context.Context, extra ...testcontainers.ContainerCustomizer) (*postgres.PostgresContainer, error) {
	opts := []testcontainers.ContainerCustomizer{
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
	}
	opts = append(opts, extra...)
	opts = append(opts, testcontainers.WithWaitStrategy(
		wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60*time.Second),
	))
	return postgres.Run(ctx, PostgresImage, opts...)
}

// resolveConn wraps the container with its connection string, tearing the
// container down again if the lookup fails.
func resolveConn(ctx context.Context, ctr *postgres.PostgresContainer, sslmode string) (*PostgresContainer, error) {
	connStr, err := ctr.ConnectionString(ctx, "sslmode="+sslmode)
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}
	return &PostgresContainer{PostgresContainer: ctr, ConnString: connStr}, nil
}

// sslOptions returns the customizers that switch the server to TLS with
// the generated bundle. WithSSLCert swaps the entrypoint to "sh", which
// breaks on Debian images (dash has no pipefail), so the bash entrypoint
// is forced back on afterwards.
func sslOptions(certPaths *CertPaths) ([]testcontainers.ContainerCustomizer, error) {
	confPath, err := writeSSLConfig(filepath.Dir(certPaths.CACert))
	if err != nil {
		return nil, err
	}
	return []testcontainers.ContainerCustomizer{
		postgres.WithSSLCert(certPaths.CACert, certPaths.ServerCert, certPaths.ServerKey),
		postgres.WithConfigFile(confPath),
		testcontainers.WithEntrypoint("bash", sslEntrypointPath),
	}, nil
}

// StartPostgres runs a TLS-enabled server that still accepts password auth.
func StartPostgres(ctx context.Context, certPaths *CertPaths) (*PostgresContainer, error) {
	opts, err := sslOptions(certPaths)
	if err != nil {
		return nil, err
	}

	ctr, err := runPostgres(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	return resolveConn(ctx, ctr, "disable")
}

// StartMTLSPostgres runs a server whose pg_hba requires a verified client
// certificate on every TCP connection.
func StartMTLSPostgres(ctx context.Context, certPaths *CertPaths) (*PostgresContainer, error) {
	dir := filepath.Dir(certPaths.CACert)

	opts, err := sslOptions(certPaths)
	if err != nil {
		return nil, err
	}
	initScript, err := writeMTLSInitScript(dir)
	if err != nil {
		return nil, err
	}
	opts = append(opts, postgres.WithInitScripts(initScript))

	ctr, err := runPostgres(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("start mTLS postgres: %w", err)
	}
	return resolveConn(ctx, ctr, "verify-ca")
}

// StartSimplePostgres runs a plain password-auth server with TLS off.
func StartSimplePostgres(ctx context.Context) (*PostgresContainer, error) {
	ctr, err := runPostgres(ctx)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	return resolveConn(ctx, ctr, "disable")
}

// mtlsInitScript rewrites pg_hba so TCP connections are only accepted
// with a verified client certificate. Local connections stay trusted for
// the image's own init phase.
const mtlsInitScript = `#!/bin/bash
cat > "$PGDATA/pg_hba.conf" << 'HBA'
local   all all            trust
hostssl all all 0.0.0.0/0  cert clientcert=verify-full
hostssl all all ::/0       cert clientcert=verify-full
HBA
`

func writeSSLConfig(dir string) (string, error) {
	conf := fmt.Sprintf(`listen_addresses = '*'
ssl = on
ssl_cert_file = '%[1]s/server.cert'
ssl_key_file = '%[1]s/server.key'
ssl_ca_file = '%[1]s/ca_cert.pem'
`, containerCertDir)
	return writeAux(dir, "postgresql.conf", conf, 0644)
}

func writeMTLSInitScript(dir string) (string, error) {
	return writeAux(dir, "init-mtls.sh", mtlsInitScript, 0755)
}

func writeAux(dir, name, content string, mode os.FileMode) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

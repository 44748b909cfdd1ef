package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content as pgseed.yaml in a fresh temp dir and
// returns the dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))
	return dir
}

func TestLoad_AllFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `connection:
  host: myhost
  port: 5433
  username: myuser
  database: mydb
  sslmode: require
  sslcert: /path/client.crt
  sslkey: /path/client.key
  sslrootcert: /path/ca.crt

fixtures:
  roots: [fixtures, testdata/fixtures]
  exclude: [uploads, scripts, static]

tables:
  shop.product: store_products
  blog.entry: posts

load:
  timeout: 10m

dump:
  chunk_size: 2500
  output: fixtures
`))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ConnectionConfig{
		Host:        "myhost",
		Port:        5433,
		Username:    "myuser",
		Database:    "mydb",
		SSLMode:     "require",
		SSLCert:     "/path/client.crt",
		SSLKey:      "/path/client.key",
		SSLRootCert: "/path/ca.crt",
	}, cfg.Connection)
	assert.Equal(t, FixturesConfig{
		Roots:   []string{"fixtures", "testdata/fixtures"},
		Exclude: []string{"uploads", "scripts", "static"},
	}, cfg.Fixtures)
	assert.Equal(t, map[string]string{
		"shop.product": "store_products",
		"blog.entry":   "posts",
	}, cfg.Tables)
	assert.Equal(t, "10m", cfg.Load.Timeout)
	assert.Equal(t, DumpConfig{ChunkSize: 2500, Output: "fixtures"}, cfg.Dump)
}

func TestLoad_MinimalYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "fixtures:\n  roots: [fixtures]\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Connection.Host)
	assert.Zero(t, cfg.Connection.Port)
	assert.Equal(t, []string{"fixtures"}, cfg.Fixtures.Roots)
	assert.Nil(t, cfg.Tables)
	assert.Zero(t, cfg.Dump.ChunkSize)
}

func TestLoad_CloudAuthFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `connection:
  host: myproject.example.cloudsql
  auth_method: google
  google_instance: myproject:us-central1:mydb
  aws_region: us-west-2
  azure_tenant_id: tenant
  azure_client_id: client
`))
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.Connection.AuthMethod)
	assert.Equal(t, "myproject:us-central1:mydb", cfg.Connection.GoogleInstance)
	assert.Equal(t, "us-west-2", cfg.Connection.AWSRegion)
	assert.Equal(t, "tenant", cfg.Connection.AzureTenantID)
	assert.Equal(t, "client", cfg.Connection.AzureClientID)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "want ErrConfigNotFound, got %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "connection: [not, a, map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ConfigFileName)
	assert.Nil(t, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ProjectConfig{}, *cfg)
}

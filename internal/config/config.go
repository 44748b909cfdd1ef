package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// ErrConfigNotFound distinguishes a missing pgseed.yaml from an unreadable
// one. Commands fall back to flag and environment resolution when they see it.
var ErrConfigNotFound = errors.New("config file not found")

// ConnectionConfig is the connection block of pgseed.yaml. Key names follow
// the libpq parameters they map to.
type ConnectionConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Database           string `yaml:"database"`
	ManagementDatabase string `yaml:"management_database,omitempty"`

	// Client TLS material.
	SSLMode     string `yaml:"sslmode"`
	SSLCert     string `yaml:"sslcert,omitempty"`
	SSLKey      string `yaml:"sslkey,omitempty"`
	SSLRootCert string `yaml:"sslrootcert,omitempty"`

	// Cloud IAM parameters. Secrets stay out of the file; they come from
	// the environment at load time.
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// FixturesConfig controls fixture discovery.
type FixturesConfig struct {
	// Roots are the search roots, in precedence order.
	Roots []string `yaml:"roots"`

	// Exclude lists directory names skipped during the search.
	Exclude []string `yaml:"exclude"`
}

// LoadConfig holds load-command defaults.
type LoadConfig struct {
	Timeout string `yaml:"timeout"`
}

// DumpConfig holds dump-command defaults.
type DumpConfig struct {
	ChunkSize int    `yaml:"chunk_size"`
	Output    string `yaml:"output"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Fixtures   FixturesConfig   `yaml:"fixtures"`

	// Tables maps kind tags to table names, overriding the app_kind
	// naming convention ("shop.product: store_products").
	Tables map[string]string `yaml:"tables"`

	Load LoadConfig `yaml:"load"`
	Dump DumpConfig `yaml:"dump"`
}

const ConfigFileName = "pgseed.yaml"

// Default returns the config `pgseed init` writes when neither the wizard
// nor flags override it. The connection block still needs a database name
// before the first load.
func Default() *ProjectConfig {
	return &ProjectConfig{
		Connection: ConnectionConfig{
			Host:     "localhost",
			Port:     5432,
			Username: "postgres",
			SSLMode:  "prefer",
		},
		Fixtures: FixturesConfig{
			Roots:   []string{"fixtures"},
			Exclude: pgseed.DefaultExcludedDirs,
		},
		Load: LoadConfig{
			Timeout: "10m",
		},
		Dump: DumpConfig{
			ChunkSize: pgseed.DefaultChunkSize,
			Output:    "fixtures",
		},
	}
}

// Load reads pgseed.yaml from sourcePath.
func Load(sourcePath string) (*ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(sourcePath, ConfigFileName))
	if os.IsNotExist(err) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	return &cfg, nil
}

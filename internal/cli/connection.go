package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgseed/pgseed/internal/config"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/tui"
	"github.com/pgseed/pgseed/internal/tui/wizards"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// connectionStringFromEnv returns PGSEED_CONNECTION_STRING, falling
// back to DATABASE_URL.
func connectionStringFromEnv() string {
	if s := os.Getenv("PGSEED_CONNECTION_STRING"); s != "" {
		return s
	}
	return os.Getenv("DATABASE_URL")
}

// hasEnvConnectionSource reports whether the environment alone already
// names a server, which lets commands skip the interactive wizard.
func hasEnvConnectionSource() bool {
	return connectionStringFromEnv() != "" ||
		(os.Getenv("PGHOST") != "" && os.Getenv("PGDATABASE") != "")
}

// resolveConnection is the one entry point commands use to turn flags,
// environment variables, and pgseed.yaml into a ConnectionConfig. The
// second result is the management database for the target-existence
// check.
func resolveConnection(
	connStringFlag string,
	granularFlags *db.GranularConnFlags,
	azureFlags *db.AzureFlags,
	awsFlags *db.AWSFlags,
	googleFlags *db.GoogleFlags,
	certFlags *db.CertFlags,
	projectConfig *config.ProjectConfig,
) (*pgseed.ConnectionConfig, string, error) {
	connString := connStringFlag
	if connString == "" {
		connString = connectionStringFromEnv()
	}

	connConfig, managementDB, err := db.ResolveConnectionParams(
		connString, granularFlags, azureFlags, awsFlags, googleFlags, certFlags,
		db.LoadFromEnvironment(), projectConfig,
	)
	if err != nil {
		return nil, "", err
	}

	// auth_method from pgseed.yaml applies only when no flag or environment
	// variable already selected a cloud provider.
	if err := applyConfigAuthMethod(connConfig, projectConfig); err != nil {
		return nil, "", err
	}

	return connConfig, managementDB, nil
}

// resolveTargetDatabase applies the -d precedence: the flag beats the
// connection string database. With requireDatabase set, a missing name
// is an error spelling out the ways to provide one.
func resolveTargetDatabase(flagDatabase, connConfigDatabase string, requireDatabase bool, commandName string, verbose bool) (string, error) {
	if verbose && flagDatabase != "" && connConfigDatabase != "" && flagDatabase != connConfigDatabase {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Using --database flag (%s) instead of connection string database (%s)\n",
			flagDatabase, connConfigDatabase)
	}

	targetDB := flagDatabase
	if targetDB == "" {
		targetDB = connConfigDatabase
	}
	if targetDB == "" && requireDatabase {
		return "", fmt.Errorf("database name is required\n"+
			"Name the target with:\n"+
			"  --database/-d flag:  pgseed %s -d mydb\n"+
			"  connection string:   pgseed %s --connection \"postgresql://user@host/mydb\"\n"+
			"  environment:         export PGDATABASE=mydb",
			commandName, commandName)
	}
	return targetDB, nil
}

// determineMaintenanceDB corrects the management database for the
// target-existence check. A database named only by the connection
// string may not exist yet, so the check runs against postgres unless
// the connection string itself points there.
func determineMaintenanceDB(flagDatabase, connStringDatabase, current string) string {
	if flagDatabase == "" && connStringDatabase != "" && connStringDatabase != "postgres" {
		return "postgres"
	}
	return current
}

var connectionFlagValues connectionFlags
var connectionSave bool

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Resolve, test, and optionally save connection settings",
	Long: `Resolves the PostgreSQL connection from flags, environment variables, and
pgseed.yaml, tests it against the server, and optionally saves the result.

Without flags on an interactive terminal, launches the connection wizard.
With flags (or PGHOST/PGSEED_CONNECTION_STRING set), resolves and tests
non-interactively, which makes it usable in CI:

  pgseed connection -h db.example.com -U app -d appdb

Passwords are never written to pgseed.yaml. Use $PGPASSWORD, ~/.pgpass, or
a cloud IAM method (--azure, --aws, --google) instead.

Examples:
  # Interactive wizard
  pgseed connection

  # Test and save granular flags
  pgseed connection -h localhost -U app -d appdb --save

  # Verify the environment is usable before a CI load
  DATABASE_URL=postgresql://app@db/appdb pgseed connection`,
	Args: cobra.NoArgs,
	RunE: runConnection,
}

func init() {
	registerConnectionFlags(connectionCmd, &connectionFlagValues)
	connectionCmd.Flags().BoolVar(&connectionSave, "save", false,
		"Save the resolved connection to pgseed.yaml (passwords are never saved)")
	rootCmd.AddCommand(connectionCmd)
}

func runConnection(cmd *cobra.Command, args []string) error {
	projectCfg, err := loadProjectConfig(".")
	if err != nil {
		return err
	}

	var connConfig *pgseed.ConnectionConfig
	var managementDB string
	tested := false

	if tui.IsInteractive() && connectionFlagValues.isEmpty() && !hasEnvConnectionSource() {
		connResult, err := wizards.RunConnectionWizard()
		if err != nil {
			return fmt.Errorf("connection wizard failed: %w", err)
		}
		if connResult.Cancelled {
			fmt.Println("Cancelled.")
			return nil
		}
		connConfig = &connResult.Config
		managementDB = connResult.ManagementDatabase
		if managementDB == "" {
			managementDB = pgseed.DefaultManagementDB
		}
		tested = connResult.Tested
		offerSavePgpass(&connResult.Config)
	} else {
		resolved, err := resolveConnectionFromFlags(connectionFlagValues, projectCfg)
		if err != nil {
			return err
		}
		connConfig = resolved.ConnConfig
		managementDB = determineMaintenanceDB(connectionFlagValues.granular.Database, connConfig.Database, resolved.MaintenanceDB)
	}

	printConnectionSettings(connConfig, managementDB)

	if !tested {
		if err := testResolvedConnection(connConfig, managementDB); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
	}

	if connectionSave {
		if err := saveConnectionToConfig(".", connConfig, managementDB); err != nil {
			return fmt.Errorf("failed to save connection: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Connection saved to %s\n", config.ConfigFileName)
	}

	return nil
}

func printConnectionSettings(connConfig *pgseed.ConnectionConfig, managementDB string) {
	fmt.Fprintf(os.Stderr, "Connection settings:\n")
	fmt.Fprintf(os.Stderr, "  Host:     %s\n", connConfig.Host)
	fmt.Fprintf(os.Stderr, "  Port:     %d\n", connConfig.Port)
	fmt.Fprintf(os.Stderr, "  User:     %s\n", connConfig.Username)
	if connConfig.Database != "" {
		fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	} else {
		fmt.Fprintf(os.Stderr, "  Database: (none, testing via %s)\n", managementDB)
	}
	fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", connConfig.SSLMode)
	fmt.Fprintf(os.Stderr, "  Auth:     %s\n", connConfig.AuthMethod)
}

// testResolvedConnection opens a pooled connection and queries the server
// version. Without a target database the management database is used, since
// the target only has to exist at load time.
func testResolvedConnection(connConfig *pgseed.ConnectionConfig, managementDB string) error {
	testCfg := *connConfig
	if testCfg.Database == "" {
		testCfg.Database = managementDB
	}

	connector, err := db.NewConnector(&testCfg)
	if err != nil {
		return err
	}

	return tui.RunWithSpinner(context.Background(), "Testing connection", func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := connector.Connect(ctx)
		if err != nil {
			return "", err
		}
		defer pool.Close()

		var version string
		if err := pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
			return "", err
		}
		if idx := strings.Index(version, ","); idx > 0 {
			version = version[:idx]
		}
		return "Connected: " + version, nil
	})
}

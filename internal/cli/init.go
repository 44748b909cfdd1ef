package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgseed/pgseed/internal/config"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/logging"
	"github.com/pgseed/pgseed/internal/scaffold"
	"github.com/pgseed/pgseed/internal/tui"
	"github.com/pgseed/pgseed/internal/tui/wizards"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new pgseed project",
	Long: `Initialize a pgseed project into the specified directory (default: current).

The init command creates:
- pgseed.yaml with connection settings and fixture roots
- fixtures/ with an example fixture demonstrating references

On an interactive terminal with no connection flags, a wizard collects the
connection settings and tests them. With flags (or PGHOST set), the project
is scaffolded non-interactively and the given settings land in pgseed.yaml.

Existing files are kept and reported; use --force to overwrite them.

Examples:
  # Interactive wizard in the current directory
  pgseed init

  # Scaffold into ./seed
  pgseed init ./seed

  # Non-interactive, connection from flags
  pgseed init -h db.example.com -U app -d appdb

  # Embed the fully resolved connection (flags + environment) in pgseed.yaml
  pgseed init -d appdb --save`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeDirectories,
	RunE:              runInit,
}

type initFlagValues struct {
	conn  connectionFlags
	save  bool
	force bool
}

var initFlags initFlagValues

func init() {
	rootCmd.AddCommand(initCmd)

	registerConnectionFlags(initCmd, &initFlags.conn)

	initCmd.Flags().BoolVar(&initFlags.save, "save", false,
		"Write the fully resolved connection (flags + environment) to pgseed.yaml")
	initCmd.Flags().BoolVar(&initFlags.force, "force", false,
		"Overwrite existing files instead of keeping them")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	verbose := verboseEnabled(cmd)

	exists, notEmpty, err := wizards.DirectoryExists(targetDir)
	if err != nil {
		return fmt.Errorf("cannot inspect target directory: %w", err)
	}
	if exists && notEmpty && !initFlags.force {
		fmt.Fprintf(os.Stderr, "Directory %s is not empty; existing files are kept (use --force to overwrite)\n", targetDir)
	}

	if tui.IsInteractive() && initFlags.conn.isEmpty() && !hasEnvConnectionSource() {
		return runInitInteractive(targetDir, verbose)
	}
	return runInitDirect(targetDir, verbose)
}

func runInitInteractive(targetDir string, verbose bool) error {
	result, err := wizards.RunInitWizard(targetDir)
	if err != nil {
		return fmt.Errorf("init wizard failed: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Cancelled.")
		return nil
	}

	// A declined or cancelled config step still scaffolds with defaults.
	var cfg *config.ProjectConfig
	if result.SetupConfig && !result.ConnResult.Cancelled && !result.ConfigResult.Cancelled {
		cfg = &result.ConfigResult.Config
	}

	scaffolder := scaffold.NewScaffolder(logging.NewConsoleLogger(verbose), initFlags.force)
	created, err := scaffolder.CreateProject(result.TargetDir, cfg)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	wizards.ShowInitComplete(result.TargetDir, created.Created, created.Skipped)

	if result.SetupConfig && !result.ConnResult.Cancelled {
		offerSavePgpass(&result.ConnResult.Config)
	}
	return nil
}

func runInitDirect(targetDir string, verbose bool) error {
	cfg := config.Default()
	if err := overlayConnectionFlags(cfg, initFlags.conn); err != nil {
		return err
	}

	scaffolder := scaffold.NewScaffolder(logging.NewConsoleLogger(verbose), initFlags.force)
	result, err := scaffolder.CreateProject(targetDir, cfg)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if initFlags.save {
		resolved, err := resolveConnectionFromFlags(initFlags.conn, cfg)
		if err != nil {
			return err
		}
		managementDB := determineMaintenanceDB(initFlags.conn.granular.Database, resolved.ConnConfig.Database, resolved.MaintenanceDB)
		if err := saveConnectionToConfig(targetDir, resolved.ConnConfig, managementDB); err != nil {
			return fmt.Errorf("failed to save connection: %w", err)
		}
	}

	wizards.ShowInitComplete(targetDir, result.Created, result.Skipped)
	return nil
}

// overlayConnectionFlags copies explicitly-set connection flags onto cfg, so
// the scaffolded pgseed.yaml reflects what the user stated and nothing more.
// Environment resolution is --save territory.
func overlayConnectionFlags(cfg *config.ProjectConfig, f connectionFlags) error {
	conn := &cfg.Connection

	if f.connection != "" {
		parsed, err := db.ParseConnectionString(f.connection)
		if err != nil {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		setNonEmpty(&conn.Host, parsed.Host)
		if parsed.Port != 0 {
			conn.Port = parsed.Port
		}
		setNonEmpty(&conn.Username, parsed.Username)
		setNonEmpty(&conn.Database, parsed.Database)
		setNonEmpty(&conn.SSLMode, parsed.SSLMode)
	}

	// Granular flags land after the connection string, so they win.
	setNonEmpty(&conn.Host, f.granular.Host)
	if f.granular.Port != 0 {
		conn.Port = f.granular.Port
	}
	setNonEmpty(&conn.Username, f.granular.Username)
	setNonEmpty(&conn.Database, f.granular.Database)
	setNonEmpty(&conn.SSLMode, f.granular.SSLMode)
	setNonEmpty(&conn.SSLCert, f.certs.SSLCert)
	setNonEmpty(&conn.SSLKey, f.certs.SSLKey)
	setNonEmpty(&conn.SSLRootCert, f.certs.SSLRootCert)

	switch {
	case f.azure.Enabled:
		conn.AuthMethod = "azure"
		conn.AzureTenantID = f.azure.TenantID
		conn.AzureClientID = f.azure.ClientID
	case f.aws.Enabled:
		conn.AuthMethod = "aws"
		conn.AWSRegion = f.aws.Region
	case f.google.Enabled:
		conn.AuthMethod = "google"
		conn.GoogleInstance = f.google.Instance
	}

	return nil
}

func setNonEmpty(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgseed/pgseed/internal/checksum"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/logging"
	"github.com/pgseed/pgseed/internal/services"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

var checkCmd = &cobra.Command{
	Use:   "check <name>...",
	Short: "Validate fixtures without loading them",
	Long: `Check locates and validates the named fixtures without writing to the database.

Offline (the default), every file is parsed structurally: JSON syntax, the
record list shape, reference syntax. With an explicit connection source
(-d, granular flags, --connection, or PGHOST/PGDATABASE in the
environment), records are additionally decoded against the live schema, so
unknown fields and type mismatches fail here instead of mid-load.

Connection settings in pgseed.yaml alone do not switch check online; only
a source given with this invocation does. That keeps 'pgseed check' usable
in pre-commit hooks with no database around. --offline forces the
structural check even when connection settings are present.

Examples:
  # Structural check, no database needed
  pgseed check users posts

  # Validate against the live schema
  pgseed check users -d mydb

  # Structural check in an environment where PGHOST is always set
  pgseed check users --offline

  # Print SHA-256 checksums of the resolved files
  pgseed check users --checksum

  # Machine-readable output for scripting
  pgseed check users --checksum --json`,
	Args: RequireFixtureNames,
	RunE: runCheck,
}

type checkFlagValues struct {
	conn          connectionFlags
	dirs          []string
	excludeDirs   []string
	checksum      bool
	jsonOut       bool
	offline       bool
	tableMaps     []string
	tableMapFiles []string
	timeout       time.Duration
}

var checkFlags checkFlagValues

func init() {
	rootCmd.AddCommand(checkCmd)

	registerConnectionFlags(checkCmd, &checkFlags.conn)

	checkCmd.Flags().StringSliceVarP(&checkFlags.dirs, "dir", "C", nil,
		"Fixture search root (can be specified multiple times)")
	checkCmd.Flags().StringSliceVar(&checkFlags.excludeDirs, "exclude-dir", nil,
		"Directory name to skip during the fixture search (can be specified multiple times)")
	checkCmd.Flags().BoolVar(&checkFlags.checksum, "checksum", false,
		"Compute and print the SHA-256 checksum of every resolved file")
	checkCmd.Flags().BoolVar(&checkFlags.jsonOut, "json", false,
		"Output check results as JSON")
	checkCmd.Flags().BoolVar(&checkFlags.offline, "offline", false,
		"Structural check only, even when connection settings are present")

	checkCmd.Flags().StringSliceVar(&checkFlags.tableMaps, "table-map", nil,
		"Kind-to-table override as kind=table (can be specified multiple times)")
	checkCmd.Flags().StringSliceVar(&checkFlags.tableMapFiles, "table-map-file", nil,
		"Load kind-to-table overrides from a file (can be specified multiple times)")

	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", pgseed.DefaultTimeout,
		"Catastrophic failure protection timeout for online checks (default 10m)")

	_ = checkCmd.RegisterFlagCompletionFunc("dir", completeDirectoriesFlag)
}

// buildCheckConfig builds a CheckConfig from CLI flags, environment, and
// pgseed.yaml. The second return reports whether the check runs online.
func buildCheckConfig(cmd *cobra.Command, names []string, verbose bool) (pgseed.CheckConfig, bool, error) {
	configDir := "."
	if len(checkFlags.dirs) > 0 {
		configDir = checkFlags.dirs[0]
	}

	projectCfg, err := loadProjectConfig(configDir)
	if err != nil {
		return pgseed.CheckConfig{}, false, err
	}

	searchRoots, excludeDirs := resolveSearchRoots(checkFlags.dirs, checkFlags.excludeDirs, projectCfg)

	tableMap, err := mergedTableMap(projectCfg, checkFlags.tableMapFiles, checkFlags.tableMaps, verbose)
	if err != nil {
		return pgseed.CheckConfig{}, false, err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, checkFlags.timeout)
	if err != nil {
		return pgseed.CheckConfig{}, false, err
	}

	config := pgseed.CheckConfig{
		Names:       names,
		SearchRoots: searchRoots,
		ExcludeDirs: excludeDirs,
		Checksum:    checkFlags.checksum,
		TableMap:    tableMap,
		Timeout:     timeout,
		Verbose:     verbose,
	}

	// Online only on an explicit source this invocation. pgseed.yaml alone
	// keeps the check offline.
	online := !checkFlags.offline && (!checkFlags.conn.isEmpty() || hasEnvConnectionSource())
	if !online {
		return config, false, nil
	}

	resolved, err := resolveConnectionFromFlags(checkFlags.conn, projectCfg)
	if err != nil {
		return pgseed.CheckConfig{}, false, err
	}
	connConfig := resolved.ConnConfig

	targetDB, err := resolveTargetDatabase(
		checkFlags.conn.granular.Database,
		connConfig.Database,
		true,
		"check",
		verbose,
	)
	if err != nil {
		return pgseed.CheckConfig{}, false, err
	}
	connConfig.Database = targetDB

	if verbose {
		logConnectionVerbose(connConfig, "", false)
	}

	config.DatabaseName = connConfig.Database
	config.ConnectionString = db.BuildConnectionString(connConfig)
	config.AuthMethod = connConfig.AuthMethod
	config.AzureTenantID = connConfig.AzureTenantID
	config.AzureClientID = connConfig.AzureClientID
	config.AzureClientSecret = connConfig.AzureClientSecret
	config.AWSRegion = connConfig.AWSRegion
	config.GoogleInstance = connConfig.GoogleInstance

	return config, true, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	verbose := verboseEnabled(cmd)

	config, online, err := buildCheckConfig(cmd, args, verbose)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(verbose)

	sessionManager := services.NewSessionManager(
		db.NewConnector,
		checksum.New(),
		logger,
	)

	checker := services.NewCheckService(logger, sessionManager, checksum.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling check...")
		cancel()
	}()

	report, err := checker.Check(ctx, config)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if checkFlags.jsonOut {
		return printCheckJSON(report, online)
	}

	if config.Checksum {
		for _, f := range report.Files {
			fmt.Fprintf(os.Stderr, "  %s  %s\n", f.Checksum, f.Path)
		}
	}
	return nil
}

func printCheckJSON(report *pgseed.CheckReport, online bool) error {
	type fileEntry struct {
		Name      string `json:"name"`
		Path      string `json:"path"`
		SizeBytes int64  `json:"size_bytes"`
		Checksum  string `json:"checksum,omitempty"`
	}

	entries := make([]fileEntry, 0, len(report.Files))
	for _, f := range report.Files {
		entries = append(entries, fileEntry{
			Name:      f.Name,
			Path:      f.Path,
			SizeBytes: f.SizeBytes,
			Checksum:  f.Checksum,
		})
	}

	result := map[string]interface{}{
		"files":          entries,
		"records":        report.Records,
		"checked_online": online,
	}
	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

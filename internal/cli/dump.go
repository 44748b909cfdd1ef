package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgseed/pgseed/internal/checksum"
	"github.com/pgseed/pgseed/internal/db"
	"github.com/pgseed/pgseed/internal/db/manager"
	"github.com/pgseed/pgseed/internal/logging"
	"github.com/pgseed/pgseed/internal/services"
	"github.com/pgseed/pgseed/internal/tui"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [kind]...",
	Short: "Export live rows as fixture files",
	Long: `Dump exports rows from the target database into JSON fixture files.

Kinds name what to export: 'shop.product' exports the table the kind maps
to (store products with the default naming convention). Without kinds,
--all exports every kind the schema knows.

Rows are read in primary key order inside a single repeatable-read
transaction, so the output is a consistent snapshot. Every kind is written
as a series (shop.product_0.json, shop.product_1.json, ...) split at
--chunk-size records per file, so 'pgseed load shop.product_*' reloads it.

With --natural-keys, foreign key columns are rewritten as references to the
target row's unique key tuple, which keeps fixtures portable across
databases with different id sequences.

Examples:
  # Dump one kind into ./fixtures
  pgseed dump shop.product -d mydb -o fixtures

  # Snapshot the whole database
  pgseed dump --all -d mydb -o fixtures

  # Portable fixtures without raw ids
  pgseed dump shop.product -d mydb --natural-keys`,
	Args: cobra.ArbitraryArgs,
	RunE: runDump,
}

type dumpFlagValues struct {
	conn          connectionFlags
	output        string
	chunkSize     int
	naturalKeys   bool
	all           bool
	tableMaps     []string
	tableMapFiles []string
	timeout       time.Duration
}

var dumpFlags dumpFlagValues

func init() {
	rootCmd.AddCommand(dumpCmd)

	registerConnectionFlags(dumpCmd, &dumpFlags.conn)

	dumpCmd.Flags().StringVarP(&dumpFlags.output, "output", "o", ".",
		"Directory fixture files are written into\n"+
			"Defaults to dump.output from pgseed.yaml, else the current directory")
	dumpCmd.Flags().IntVar(&dumpFlags.chunkSize, "chunk-size", pgseed.DefaultChunkSize,
		"Maximum records per output file; larger kinds become a chunked series")
	dumpCmd.Flags().BoolVar(&dumpFlags.naturalKeys, "natural-keys", false,
		"Replace foreign key values with the target row's unique key tuple")
	dumpCmd.Flags().BoolVar(&dumpFlags.all, "all", false,
		"Export every kind known to the schema")

	dumpCmd.Flags().StringSliceVar(&dumpFlags.tableMaps, "table-map", nil,
		"Kind-to-table override as kind=table (can be specified multiple times)")
	dumpCmd.Flags().StringSliceVar(&dumpFlags.tableMapFiles, "table-map-file", nil,
		"Load kind-to-table overrides from a file (can be specified multiple times)")

	dumpCmd.Flags().DurationVar(&dumpFlags.timeout, "timeout", pgseed.DefaultTimeout,
		"Catastrophic failure protection timeout (default 10m)")

	_ = dumpCmd.RegisterFlagCompletionFunc("output", completeDirectoriesFlag)
}

// buildDumpConfig builds a DumpConfig from CLI flags, environment, and
// pgseed.yaml. Extracted for testability.
func buildDumpConfig(cmd *cobra.Command, kinds []string, verbose bool) (pgseed.DumpConfig, error) {
	if len(kinds) == 0 && !dumpFlags.all {
		return pgseed.DumpConfig{}, fmt.Errorf(`missing required argument: <kind> (or --all)

Usage: %s

Example:
  %s shop.product -d mydb -o fixtures`, cmd.UseLine(), cmd.CommandPath())
	}

	projectCfg, err := loadProjectConfig(".")
	if err != nil {
		return pgseed.DumpConfig{}, err
	}

	resolved, err := resolveConnectionFromFlags(dumpFlags.conn, projectCfg)
	if err != nil {
		return pgseed.DumpConfig{}, err
	}
	connConfig := resolved.ConnConfig

	targetDB, err := resolveTargetDatabase(
		dumpFlags.conn.granular.Database,
		connConfig.Database,
		true,
		"dump",
		verbose,
	)
	if err != nil {
		return pgseed.DumpConfig{}, err
	}

	managementDB := determineMaintenanceDB(dumpFlags.conn.granular.Database, connConfig.Database, resolved.MaintenanceDB)
	connConfig.Database = targetDB

	if verbose {
		logConnectionVerbose(connConfig, managementDB, true)
	}

	output := dumpFlags.output
	if projectCfg != nil && projectCfg.Dump.Output != "" && !cmd.Flags().Changed("output") {
		output = projectCfg.Dump.Output
	}

	chunkSize := dumpFlags.chunkSize
	if projectCfg != nil && projectCfg.Dump.ChunkSize > 0 && !cmd.Flags().Changed("chunk-size") {
		chunkSize = projectCfg.Dump.ChunkSize
	}

	tableMap, err := mergedTableMap(projectCfg, dumpFlags.tableMapFiles, dumpFlags.tableMaps, verbose)
	if err != nil {
		return pgseed.DumpConfig{}, err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, dumpFlags.timeout)
	if err != nil {
		return pgseed.DumpConfig{}, err
	}

	config := pgseed.DumpConfig{
		Kinds:              kinds,
		All:                dumpFlags.all,
		OutputDir:          output,
		ChunkSize:          chunkSize,
		NaturalKeys:        dumpFlags.naturalKeys,
		DatabaseName:       connConfig.Database,
		ConnectionString:   db.BuildConnectionString(connConfig),
		ManagementDatabase: managementDB,
		TableMap:           tableMap,
		Timeout:            timeout,
		Verbose:            verbose,
		AuthMethod:         connConfig.AuthMethod,
		AzureTenantID:      connConfig.AzureTenantID,
		AzureClientID:      connConfig.AzureClientID,
		AzureClientSecret:  connConfig.AzureClientSecret,
		AWSRegion:          connConfig.AWSRegion,
		GoogleInstance:     connConfig.GoogleInstance,
	}

	return config, nil
}

func runDump(cmd *cobra.Command, args []string) error {
	verbose := verboseEnabled(cmd)

	config, err := buildDumpConfig(cmd, args, verbose)
	if err != nil {
		return err
	}

	// Verbose output and the spinner fight over the terminal. Spinner only
	// on a quiet interactive run.
	useSpinner := tui.IsInteractive() && !verbose

	var logger pgseed.Logger
	if useSpinner {
		logger = logging.NewNullLogger()
	} else {
		logger = logging.NewConsoleLogger(verbose)
	}
	dbManager := manager.New()

	sessionManager := services.NewSessionManager(
		db.NewConnector,
		checksum.New(),
		logger,
	)

	dumper := services.NewDumpService(
		db.NewConnector,
		logger,
		sessionManager,
		dbManager,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling dump...")
		cancel()
	}()

	var report *pgseed.DumpReport
	dump := func(ctx context.Context) (string, error) {
		var dumpErr error
		report, dumpErr = dumper.Dump(ctx, config)
		if dumpErr != nil {
			return "", dumpErr
		}
		return fmt.Sprintf("Dumped %d record(s) from %d kind(s)", report.Records, report.Kinds), nil
	}

	if useSpinner {
		err = tui.RunWithSpinner(ctx, "Dumping fixtures", dump)
	} else {
		_, err = dump(ctx)
	}
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}

	printDumpReport(report)
	return nil
}

func printDumpReport(report *pgseed.DumpReport) {
	fmt.Fprintf(os.Stderr, "\n✓ Dump complete\n")
	fmt.Fprintf(os.Stderr, "  Kinds:    %d\n", report.Kinds)
	fmt.Fprintf(os.Stderr, "  Records:  %d\n", report.Records)
	fmt.Fprintf(os.Stderr, "  Files:    %d\n", len(report.Files))
	for _, f := range report.Files {
		fmt.Fprintf(os.Stderr, "    %s\n", f)
	}
	fmt.Fprintf(os.Stderr, "  Duration: %s\n", report.Duration.Round(time.Millisecond))
}

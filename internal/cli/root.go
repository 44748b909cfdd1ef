package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var asciiLogo = `
                                _
 _ __   __ _  ___  ___  ___  __| |
| '_ \ / _' |(_-< / -_)/ -_)/ _' |
| .__/ \__, |/__/ \___|\___|\__,_|
|_|    |___/`

var rootCmd = &cobra.Command{
	Use:   "pgseed",
	Short: "PostgreSQL fixture loader",
	Long: asciiLogo + `

pgseed loads JSON fixture files into PostgreSQL in dependency order inside a
single transaction, and dumps live rows back out as fixtures. Rows reference
each other by natural keys instead of ids, so fixtures stay diffable and
order-independent on disk.

Declarative fixtures in. Real rows out. The database stays consistent.

Exit Codes:
  0  - Success
  1  - General error (load, dump, or check failed)
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - Load confirmation declined
  13 - Fixture parse, integrity, or reference failure
  14 - Fixture file not found`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute runs the CLI. A leading --version prints build information
// without going through command parsing.
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgseed")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output for every command")
}

// verboseEnabled safely retrieves the verbose flag value
func verboseEnabled(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

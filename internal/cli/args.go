package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireFixtureNames validates that at least one fixture name argument is
// provided. Returns a helpful error message with usage and examples if missing.
func RequireFixtureNames(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <name>

Usage: %s

Example:
  %s users posts -d mydb

Names match fixture file stems: 'users' selects users.json, 'entries_*'
selects every file of the entries series.`, cmd.UseLine(), cmd.CommandPath())
	}
	return nil
}

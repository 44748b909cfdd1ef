package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgseed/pgseed/internal/docs"
)

// sslModes are the libpq sslmode values, in increasing strictness.
var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

var completionsCmd = &cobra.Command{
	Use:   "completions <shell>",
	Short: "Generate shell completion scripts",
	Long: `Generate a completion script for the given shell.

The script completes commands, flags, SSL modes, docs topics, and fixture
directories.

Examples:
  # Bash (add to ~/.bashrc)
  source <(pgseed completions bash)

  # Zsh (add to ~/.zshrc)
  source <(pgseed completions zsh)

  # Fish
  pgseed completions fish | source

  # PowerShell
  pgseed completions powershell | Out-String | Invoke-Expression`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return fmt.Errorf("unsupported shell: %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(completionsCmd)
}

// prefixMatches filters values to those starting with prefix.
func prefixMatches(values []string, prefix string) []string {
	var matches []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			matches = append(matches, v)
		}
	}
	return matches
}

// completeSSLModes completes --ssl-mode values.
func completeSSLModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return prefixMatches(sslModes, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeDirectories completes the first positional as a directory. The
// shell supplies the directory listing.
func completeDirectories(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// completeDirectoriesFlag completes repeatable directory flags; earlier
// values never suppress completion.
func completeDirectoriesFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// completeTopicNames completes docs topic arguments from the embedded
// topic list.
func completeTopicNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names, err := docs.GetTopicNames()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return prefixMatches(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

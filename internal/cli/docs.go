package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pgseed/pgseed/internal/docs"
	"github.com/pgseed/pgseed/internal/tui"
	"github.com/pgseed/pgseed/internal/tui/components"
)

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Show embedded reference documentation",
	Long: `Docs prints the embedded reference documentation to stdout.

Without a topic it lists what is available, or offers an interactive picker
on a TTY. Output is plain Markdown, so it pipes cleanly:

  pgseed docs fixture-format | less

Examples:
  # List topics
  pgseed docs

  # Read the fixture file format reference
  pgseed docs fixture-format`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeTopicNames,
	RunE:              runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		content, err := docs.GetTopic(args[0])
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil
	}

	if tui.IsInteractive() {
		return runDocsPicker()
	}
	return printDocsIndex()
}

// runDocsPicker lets the user pick a topic from a list, then prints it.
func runDocsPicker() error {
	topics, err := docs.ListTopics()
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}

	options := make([]components.Option, 0, len(topics))
	for _, t := range topics {
		options = append(options, components.Option{
			Label:       t.Name,
			Description: t.Description,
			Value:       t.Name,
		})
	}

	selector := components.NewSelector("pgseed documentation", options)
	model, err := tea.NewProgram(selector).Run()
	if err != nil {
		return err
	}

	result := model.(components.Selector)
	if result.Cancelled() || !result.Submitted() {
		return nil
	}

	content, err := docs.GetTopic(result.Value())
	if err != nil {
		return err
	}
	fmt.Print(content)
	return nil
}

func printDocsIndex() error {
	overview, err := docs.GetOverview()
	if err != nil {
		return err
	}
	fmt.Print(overview)

	topics, err := docs.ListTopics()
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}

	fmt.Println()
	fmt.Println("Topics:")
	for _, t := range topics {
		fmt.Printf("  %-16s %s\n", t.Name, t.Description)
	}
	fmt.Println()
	fmt.Println("Run 'pgseed docs <topic>' to read a topic.")
	return nil
}

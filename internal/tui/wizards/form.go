// Package wizards implements the interactive setup flows for pgseed.
package wizards

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pgseed/pgseed/internal/tui"
)

// formField declares one text input in a wizard form.
type formField struct {
	key         string
	label       string
	placeholder string
	initial     string
	charLimit   int
	width       int
	secret      bool
	missing     string // validation error when required and left empty
	hint        string
}

func (f formField) model() textinput.Model {
	in := textinput.New()
	in.Placeholder = f.placeholder
	in.CharLimit = f.charLimit
	in.Width = f.width
	in.SetValue(f.initial)
	if f.secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

// formLayout is the full description of one input screen.
type formLayout struct {
	subtitle  string
	fields    []formField
	footnotes []string
}

// choice is one entry in a selectable list.
type choice struct {
	name string
	desc string
}

func renderChoices(subtitle string, items []choice, selected int, help string) string {
	var b strings.Builder

	b.WriteString(tui.SubtitleStyle.Render(subtitle))
	b.WriteString("\n\n")

	for i, it := range items {
		line := "  " + tui.UnselectedStyle.Render(tui.SymbolUnselected+" "+it.name)
		if i == selected {
			line = tui.SelectedStyle.Render(tui.SymbolSelected + " " + it.name)
		}
		b.WriteString(line)
		b.WriteString("\n")
		b.WriteString(tui.DescriptionStyle.Render(it.desc))
		b.WriteString("\n")
	}

	b.WriteString(tui.HelpStyle.Render("\n" + help))

	return b.String()
}

// valueOr returns v, or fallback when the field was left empty.
func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// portOr parses v as a port, falling back when it is empty or invalid.
func portOr(v string, fallback int) int {
	if port, err := strconv.Atoi(v); err == nil && port > 0 {
		return port
	}
	return fallback
}

// runModel runs a wizard in its own full-screen Bubble Tea program and
// returns the final model state.
func runModel[M tea.Model](m M) (M, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		var zero M
		return zero, err
	}
	return final.(M), nil
}

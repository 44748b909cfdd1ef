package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shared palette for the picker components. Wizard styling lives in the
// parent tui package; these stay local so components never import upward.
const (
	colorAccent = lipgloss.Color("39")
	colorText   = lipgloss.Color("252")
	colorFaint  = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
	colorGood   = lipgloss.Color("34")
	colorBad    = lipgloss.Color("196")
)

var (
	selectorTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	selectorOnStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	selectorOffStyle   = lipgloss.NewStyle().Foreground(colorFaint)
	selectorDescStyle  = lipgloss.NewStyle().Foreground(colorDim).MarginLeft(4)
	selectorHelpStyle  = lipgloss.NewStyle().Foreground(colorDim).MarginTop(1)
)

// Option is one selectable row: a label, an optional description line
// under it, and the value reported when it is chosen.
type Option struct {
	Label       string
	Description string
	Value       string
}

// Selector renders a vertical option list with a radio-style cursor.
// Enter submits the highlighted option, esc or q cancels.
type Selector struct {
	title     string
	options   []Option
	cursor    int
	chosen    int
	keys      selectorKeys
	submitted bool
	cancelled bool
}

type selectorKeys struct {
	up     key.Binding
	down   key.Binding
	choose key.Binding
	quit   key.Binding
}

// NewSelector builds a selector over options with a title line.
func NewSelector(title string, options []Option) Selector {
	return Selector{
		title:   title,
		options: options,
		chosen:  -1,
		keys: selectorKeys{
			up:     key.NewBinding(key.WithKeys("up", "k")),
			down:   key.NewBinding(key.WithKeys("down", "j")),
			choose: key.NewBinding(key.WithKeys("enter")),
			quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
		},
	}
}

// Init implements tea.Model.
func (s Selector) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (s Selector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch {
	case key.Matches(keyMsg, s.keys.up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(keyMsg, s.keys.down):
		if s.cursor < len(s.options)-1 {
			s.cursor++
		}
	case key.Matches(keyMsg, s.keys.choose):
		s.chosen = s.cursor
		s.submitted = true
		return s, tea.Quit
	case key.Matches(keyMsg, s.keys.quit):
		s.cancelled = true
		return s, tea.Quit
	}
	return s, nil
}

// View implements tea.Model.
func (s Selector) View() string {
	var b strings.Builder
	b.WriteString(selectorTitleStyle.Render(s.title))
	b.WriteString("\n\n")

	for i, opt := range s.options {
		b.WriteString(s.renderRow(i, opt))
	}

	b.WriteString(selectorHelpStyle.Render("\n↑/↓ navigate • enter select • q quit"))
	return b.String()
}

func (s Selector) renderRow(i int, opt Option) string {
	line := "  " + selectorOffStyle.Render("○ "+opt.Label) + "\n"
	if i == s.cursor {
		line = selectorOnStyle.Render("● "+opt.Label) + "\n"
	}
	if opt.Description != "" {
		line += selectorDescStyle.Render(opt.Description) + "\n"
	}
	return line
}

// Submitted reports whether enter confirmed an option.
func (s Selector) Submitted() bool { return s.submitted }

// Cancelled reports whether the user backed out without choosing.
func (s Selector) Cancelled() bool { return s.cancelled }

// SelectedOption returns the chosen option, or nil before submission.
func (s Selector) SelectedOption() *Option {
	if s.chosen < 0 || s.chosen >= len(s.options) {
		return nil
	}
	return &s.options[s.chosen]
}

// Value returns the chosen option's value, or "" before submission.
func (s Selector) Value() string {
	opt := s.SelectedOption()
	if opt == nil {
		return ""
	}
	return opt.Value
}

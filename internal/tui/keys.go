package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings shared by the wizards. List screens use
// Up/Down/Select/Back, input forms add Tab/ShiftTab, and Quit works
// everywhere.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Back     key.Binding
	Quit     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       bind("↑/k", "up", "up", "k"),
		Down:     bind("↓/j", "down", "down", "j"),
		Select:   bind("enter", "select", "enter"),
		Back:     bind("esc", "back", "esc"),
		Quit:     bind("q", "quit", "q", "ctrl+c"),
		Tab:      bind("tab", "next field", "tab"),
		ShiftTab: bind("shift+tab", "prev field", "shift+tab"),
	}
}

// HelpText returns the footer line for list screens.
func (k KeyMap) HelpText() string {
	return "↑/↓ navigate • enter select • esc back • q quit"
}

// InputHelpText returns the footer line for input forms.
func (k KeyMap) InputHelpText() string {
	return "tab/↓ next • shift+tab/↑ prev • enter submit • esc back"
}

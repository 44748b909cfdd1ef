package tui

import "github.com/charmbracelet/lipgloss"

// Palette. 256-color codes chosen to stay readable on light and dark
// terminals.
var (
	colorPrimary   = lipgloss.Color("39")  // blue
	colorSecondary = lipgloss.Color("245") // gray
	colorSuccess   = lipgloss.Color("34")  // green
	colorWarning   = lipgloss.Color("214") // orange
	colorError     = lipgloss.Color("196") // red
	colorMuted     = lipgloss.Color("240") // dark gray
)

// Shared wizard styles. Input boxes derive from one rounded-border base;
// the focused variant only swaps the border color.
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1)
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorSecondary).MarginBottom(1)

	BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSecondary).Padding(1, 2)

	inputBase         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	InputStyle        = inputBase.BorderForeground(colorMuted)
	FocusedInputStyle = inputBase.BorderForeground(colorPrimary)
	InputLabelStyle   = lipgloss.NewStyle().Foreground(colorSecondary)

	SelectedStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	UnselectedStyle  = lipgloss.NewStyle().Foreground(colorSecondary)
	DescriptionStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginLeft(4)

	SuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorError)
	WarningStyle = lipgloss.NewStyle().Foreground(colorWarning)

	HelpStyle    = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	SpinnerStyle = lipgloss.NewStyle().Foreground(colorPrimary)
)

// Symbols used across wizards and the progress runner.
const (
	SymbolSelected   = "●"
	SymbolUnselected = "○"
	SymbolCheck      = "✓"
	SymbolCross      = "✗"
	SymbolArrowRight = "→"
	SymbolSpinner    = "◐"
)

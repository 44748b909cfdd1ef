package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pgseed/pgseed/internal/tui/components"
)

// spinnerRunner drives a background operation behind an animated spinner.
// Ctrl+C cancels the operation's context; the final frame shows the
// success or failure line.
type spinnerRunner struct {
	spinner components.Spinner
	run     func() tea.Msg
	cancel  context.CancelFunc
	err     error
}

func (m spinnerRunner) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), m.run)
}

func (m spinnerRunner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case components.SpinnerDoneMsg:
		m.err = msg.Err
		m.spinner, _ = m.spinner.Update(msg)
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// The operation observes the cancel and reports back with a
			// SpinnerDoneMsg, so quitting happens on its terms.
			m.cancel()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerRunner) View() string {
	// On failure the error line comes from the caller, not the frame.
	if m.spinner.IsDone() && !m.spinner.IsSuccess() {
		return ""
	}
	return m.spinner.View() + "\n"
}

// RunWithSpinner runs fn behind a spinner on interactive terminals and
// behind plain progress lines otherwise. The string fn returns becomes
// the success line.
func RunWithSpinner(ctx context.Context, message string, fn func(context.Context) (string, error)) error {
	if !IsInteractive() {
		display := NewProgressDisplay()
		display.Start(message)
		result, err := fn(ctx)
		if err != nil {
			return err
		}
		display.Success(result)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := spinnerRunner{
		spinner: components.NewSpinner(message),
		cancel:  cancel,
		run: func() tea.Msg {
			result, err := fn(ctx)
			if err != nil {
				return components.SpinnerFailed(err)
			}
			return components.SpinnerDone(result)
		},
	}

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return err
	}
	return final.(spinnerRunner).err
}

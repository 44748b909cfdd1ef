package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerMsgStyle  = lipgloss.NewStyle().Foreground(colorText)
	spinnerGoodStyle = lipgloss.NewStyle().Foreground(colorGood)
	spinnerBadStyle  = lipgloss.NewStyle().Foreground(colorBad)
)

// Spinner animates a dot spinner next to a message until it receives a
// SpinnerDoneMsg, then renders the closing success or failure line.
type Spinner struct {
	model   spinner.Model
	message string
	done    bool
	final   SpinnerDoneMsg
}

// NewSpinner builds a spinner labelled with message.
func NewSpinner(message string) Spinner {
	m := spinner.New()
	m.Spinner = spinner.Dot
	m.Style = lipgloss.NewStyle().Foreground(colorAccent)
	return Spinner{model: m, message: message}
}

// Init implements tea.Model.
func (s Spinner) Init() tea.Cmd {
	return s.model.Tick
}

// Update advances the animation and latches the closing state when a
// SpinnerDoneMsg arrives.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	switch msg := msg.(type) {
	case SpinnerDoneMsg:
		s.done, s.final = true, msg
		return s, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.model, cmd = s.model.Update(msg)
		return s, cmd
	}
	return s, nil
}

// View implements tea.Model.
func (s Spinner) View() string {
	switch {
	case !s.done:
		return s.model.View() + " " + spinnerMsgStyle.Render(s.message)
	case s.final.Success:
		return spinnerGoodStyle.Render("✓ " + s.final.Result)
	default:
		return spinnerBadStyle.Render("✗ " + s.final.Err.Error())
	}
}

// SpinnerDoneMsg ends the animation. Success selects which closing line
// View renders.
type SpinnerDoneMsg struct {
	Success bool
	Result  string
	Err     error
}

// SpinnerDone reports a completed operation; result becomes the closing line.
func SpinnerDone(result string) SpinnerDoneMsg {
	return SpinnerDoneMsg{Success: true, Result: result}
}

// SpinnerFailed reports a failed operation.
func SpinnerFailed(err error) SpinnerDoneMsg {
	return SpinnerDoneMsg{Err: err}
}

// IsDone reports whether the closing line has been reached.
func (s Spinner) IsDone() bool { return s.done }

// IsSuccess reports whether the operation ended cleanly.
func (s Spinner) IsSuccess() bool { return s.done && s.final.Success }

package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pgseed/pgseed/internal/tui/components"
)

func newTestRunner(cancel context.CancelFunc) spinnerRunner {
	return spinnerRunner{
		spinner: components.NewSpinner("Dumping"),
		cancel:  cancel,
		run:     func() tea.Msg { return nil },
	}
}

func TestSpinnerRunner_DoneQuits(t *testing.T) {
	m := newTestRunner(func() {})

	model, cmd := m.Update(components.SpinnerDone("Dumped 12 record(s)"))
	runner := model.(spinnerRunner)

	if runner.err != nil {
		t.Errorf("success should leave err nil, got %v", runner.err)
	}
	if cmd == nil {
		t.Fatal("expected tea.Quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !strings.Contains(runner.View(), "Dumped 12 record(s)") {
		t.Errorf("final frame should show the success line, got %q", runner.View())
	}
}

func TestSpinnerRunner_FailureCarriesError(t *testing.T) {
	m := newTestRunner(func() {})

	wantErr := errors.New("connection refused")
	model, cmd := m.Update(components.SpinnerFailed(wantErr))
	runner := model.(spinnerRunner)

	if !errors.Is(runner.err, wantErr) {
		t.Errorf("err = %v, want %v", runner.err, wantErr)
	}
	if cmd == nil {
		t.Fatal("expected tea.Quit command")
	}
	if runner.View() != "" {
		t.Errorf("failure frame should be empty, got %q", runner.View())
	}
}

func TestSpinnerRunner_CtrlCCancelsContext(t *testing.T) {
	cancelled := false
	m := newTestRunner(func() { cancelled = true })

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	runner := model.(spinnerRunner)

	if !cancelled {
		t.Error("ctrl+c should cancel the operation context")
	}
	if cmd != nil {
		t.Error("ctrl+c should not quit directly; the operation reports back first")
	}
	if runner.err != nil {
		t.Errorf("err should stay nil until the operation reports, got %v", runner.err)
	}
}

func TestRunWithSpinner_NonInteractive(t *testing.T) {
	t.Setenv("PGSEED_NON_INTERACTIVE", "1")

	ran := false
	err := RunWithSpinner(context.Background(), "Dumping", func(ctx context.Context) (string, error) {
		ran = true
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("fn should run in non-interactive mode")
	}

	wantErr := errors.New("boom")
	err = RunWithSpinner(context.Background(), "Dumping", func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

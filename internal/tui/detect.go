package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode says whether pgseed may run its interactive wizards.
type Mode int

const (
	// ModeNonInteractive is used for CI pipelines, scripts, and piped input.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "non-interactive"
}

// DetectMode decides the interaction mode. Non-interactive wins whenever
// automation is likely: PGSEED_NON_INTERACTIVE=1 as the explicit switch,
// a non-empty CI or NO_COLOR, or stdin/stdout not being terminals.
func DetectMode() Mode {
	if envForcesNonInteractive() {
		return ModeNonInteractive
	}

	// Wizards read stdin and render to stdout; both must be terminals.
	for _, f := range []*os.File{os.Stdin, os.Stdout} {
		if !term.IsTerminal(int(f.Fd())) {
			return ModeNonInteractive
		}
	}

	return ModeInteractive
}

// envForcesNonInteractive reports whether the environment alone rules out
// the wizards. The explicit switch must be exactly "1"; the CI and
// NO_COLOR conventions count when set to anything.
func envForcesNonInteractive() bool {
	if os.Getenv("PGSEED_NON_INTERACTIVE") == "1" {
		return true
	}
	return os.Getenv("CI") != "" || os.Getenv("NO_COLOR") != ""
}

// IsInteractive reports whether pgseed runs in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}

package tui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PromptContinue asks a yes/no question on the terminal, defaulting to
// yes. Non-interactive runs always proceed.
func PromptContinue(message string) bool {
	if !IsInteractive() {
		return true
	}
	fmt.Printf("%s [Y/n]: ", message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true
	}
	return false
}

// ProgressDisplay prints plain progress lines where the animated spinner
// cannot run.
type ProgressDisplay struct{}

func NewProgressDisplay() *ProgressDisplay {
	return &ProgressDisplay{}
}

func (p *ProgressDisplay) Start(message string) {
	if IsInteractive() {
		fmt.Printf("%s %s\n", SpinnerStyle.Render(SymbolSpinner), message)
		return
	}
	fmt.Println(message)
}

func (p *ProgressDisplay) Success(message string) {
	fmt.Println(SuccessStyle.Render(SymbolCheck + " " + message))
}

func (p *ProgressDisplay) Error(message string) {
	fmt.Println(ErrorStyle.Render(SymbolCross + " " + message))
}

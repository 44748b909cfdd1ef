package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// InteractiveApprover guards the load behind a typed confirmation: the
// user has to enter the target database name before anything is
// written.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover returns an InteractiveApprover reading from
// stdin and prompting on stderr.
func NewInteractiveApprover(verbose bool) pgseed.Approver {
	return &InteractiveApprover{
		verbose: verbose,
		input:   os.Stdin,
		output:  os.Stderr,
	}
}

// RequestApproval prompts for the database name and approves only on
// an exact match. The read runs in a goroutine so a cancelled ctx can
// interrupt a prompt nobody is answering.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, plan pgseed.LoadPlan) (bool, error) {
	fmt.Fprintf(a.output, "\n⚠️  WARNING: You are about to load %s into '%s'\n", planSummary(plan), plan.Database)
	fmt.Fprintln(a.output, "Constraint checks are suspended while the load runs!")
	fmt.Fprintf(a.output, "\nTo confirm, type the database name '%s' and press Enter: ", plan.Database)

	type readResult struct {
		line string
		err  error
	}
	results := make(chan readResult, 1)
	go func() {
		line, err := bufio.NewReader(a.input).ReadString('\n')
		results <- readResult{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-results:
		switch {
		case res.err != nil:
			return false, fmt.Errorf("failed to read input: %w", res.err)
		case res.line == plan.Database:
			fmt.Fprintln(a.output, "✓ Confirmed. Proceeding with load...")
			return true, nil
		default:
			fmt.Fprintf(a.output, "✗ Input '%s' does not match database name '%s'. Load cancelled.\n", res.line, plan.Database)
			return false, nil
		}
	}
}

var _ pgseed.Approver = (*InteractiveApprover)(nil)

package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

const forcedWarning = `
  +----------------------------------------------------------------+
  |  !! DANGER: FORCED LOAD !!                                     |
  |                                                                |
  |  Fixture data is about to be written into database             |
  |      %-54s  |
  |  with constraint checks suspended until commit.                |
  +----------------------------------------------------------------+
`

// ForcedApprover approves without prompting. It still prints the plan
// and a short countdown so an operator at the terminal can abort with
// Ctrl+C. Selected by the --force flag.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

// NewForcedApprover returns a ForcedApprover writing to stderr.
func NewForcedApprover(verbose bool) pgseed.Approver {
	return &ForcedApprover{
		verbose: verbose,
		output:  os.Stderr,
		sleepFn: time.Sleep,
	}
}

// RequestApproval prints the plan, runs the countdown, and approves
// unless ctx is cancelled first.
func (a *ForcedApprover) RequestApproval(ctx context.Context, plan pgseed.LoadPlan) (bool, error) {
	fmt.Fprintf(a.output, forcedWarning, "'"+plan.Database+"'")
	fmt.Fprintf(a.output, "\n%s queued.\n", planSummary(plan))

	for i := int(pgseed.DefaultForceApprovalCountdown.Seconds()); i > 0; i-- {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintf(a.output, "\rLoading in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(1 * time.Second)
	}

	fmt.Fprint(a.output, "\r✓ Proceeding with load...                              \n")
	return true, nil
}

// planSummary renders the record and file counts the way both
// approvers quote them.
func planSummary(plan pgseed.LoadPlan) string {
	return fmt.Sprintf("%d record(s) from %d fixture file(s)", plan.Records, plan.Files)
}

var _ pgseed.Approver = (*ForcedApprover)(nil)

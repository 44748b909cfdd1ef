package pgseed

import "context"

// LoadPlan summarizes what a load is about to do, for the approval prompt.
type LoadPlan struct {
	// Database is the target database name.
	Database string

	// Files is the number of resolved fixture files.
	Files int

	// Records is the total number of deserialized records.
	Records int
}

// Approver handles user interaction for approval workflows: a load writes
// directly into the target tables with constraints suspended, so it asks
// before proceeding unless forced.
//
// Implementations:
//   - ForcedApprover: approves without interaction (--force)
//   - InteractiveApprover: prompts user to type the database name for confirmation
type Approver interface {
	// RequestApproval prompts for confirmation before the load writes to
	// the target database.
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, plan LoadPlan) (bool, error)
}

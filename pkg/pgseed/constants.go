package pgseed

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load/dump/check completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User declined the load confirmation
	ExitLoadFailed      = 13 // Parse, integrity, or reference resolution failure
	ExitFixtureMissing  = 14 // Requested fixture file not found
)

const (
	// SeriesMarker is the suffix that turns a fixture name token into a
	// chunk-series pattern: "users_*" resolves to users_0, users_1, ...
	// stopping at the first missing index.
	SeriesMarker = "_*"

	// PlaceholderKey is the sentinel written to non-nullable deferred
	// foreign-key columns at insert time, patched by the resolver pass
	// before the deferred constraint check fires at commit.
	PlaceholderKey = 0

	// DefaultChunkSize is the maximum number of records per dump file.
	DefaultChunkSize = 5000

	// DefaultTimeout is the global timeout for a load or dump run.
	DefaultTimeout = 10 * time.Minute

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultForceApprovalCountdown is how long a forced load counts down
	// before proceeding, leaving a window to Ctrl+C.
	DefaultForceApprovalCountdown = 5 * time.Second

	// MaxErrorPreviewLength is the maximum number of characters shown
	// in error messages when previewing failed SQL statements.
	// This prevents overwhelming the console with large statement errors.
	MaxErrorPreviewLength = 200

	// MaxStatementParams caps the bind parameters of one INSERT; the wire
	// protocol limit is 65535 and batches chunk rows to stay under it.
	MaxStatementParams = 65535

	// DefaultManagementDB is the default database to connect to for management operations.
	DefaultManagementDB = "postgres"
)

// DefaultExcludedDirs are directory names the fixture search skips to avoid
// false matches and wasted traversal.
var DefaultExcludedDirs = []string{"uploads", "scripts", "static"}

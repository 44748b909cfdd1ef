package pgseed

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := loader.Load(ctx, config)
//	if errors.Is(err, pgseed.ErrFixtureNotFound) {
//	    // Handle missing fixture
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFixtureNotFound indicates a requested fixture file could not be
	// located under any search root.
	ErrFixtureNotFound = errors.New("fixture not found")

	// ErrFixtureParse indicates a fixture file is malformed. The whole
	// file's load is aborted; there is no partial-file tolerance.
	ErrFixtureParse = errors.New("fixture parse failed")

	// ErrIntegrity indicates an unexpected constraint violation during the
	// load (anything other than the conflict-skip path).
	ErrIntegrity = errors.New("integrity violation")

	// ErrUnresolvableReference indicates a deferred reference that could
	// not be resolved even by the self-reference retry pass.
	ErrUnresolvableReference = errors.New("unresolvable reference")

	// ErrMissingUniqueKey indicates a kind that needs row relocation
	// (deferred or many-to-many data) but offers no unique key spec.
	ErrMissingUniqueKey = errors.New("no unique key for kind")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Check for sentinel errors
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrFixtureNotFound):
		return ExitFixtureMissing
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrFixtureParse),
		errors.Is(err, ErrIntegrity),
		errors.Is(err, ErrUnresolvableReference),
		errors.Is(err, ErrMissingUniqueKey):
		return ExitLoadFailed
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	}

	// Cobra reports flag and argument misuse as plain string errors
	errStr := err.Error()
	if isUsageErrorMessage(errStr) {
		return ExitUsageError
	}

	// Check for common connection error patterns
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

func isUsageErrorMessage(msg string) bool {
	patterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"arg(s), received",
		"required flag",
		"invalid argument",
		"missing required argument",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

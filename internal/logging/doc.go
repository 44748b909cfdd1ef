// Package logging provides the pgseed.Logger implementations used by the
// CLI and services. ConsoleLogger writes level-prefixed messages to
// stderr; NullLogger discards everything.
//
// Both are safe for concurrent use by multiple goroutines.
package logging

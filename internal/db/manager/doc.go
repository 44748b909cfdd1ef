// Package manager implements server-level database operations: the
// pre-load existence check, and the create/drop/terminate lifecycle
// the test infrastructure uses for scratch databases.
//
// Database names pass through pgx.Identifier.Sanitize(), so names with
// spaces, quotes, or statement fragments become a single quoted
// identifier rather than extra SQL.
//
// The Manager itself is stateless; concurrency safety is whatever the
// injected DBConnection provides.
package manager

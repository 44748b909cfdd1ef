// Package loader implements the fixture load pipeline: constraint-suspended
// bulk insertion, deferred foreign-key resolution, many-to-many relinking,
// and sequence resynchronization.
//
// # Pipeline Phases
//
// A load is single-threaded and phase-ordered. The main transaction covers
// every batch's bulk insert plus the first deferred-resolution pass; the
// deferred foreign-key checks fire at its commit. Self-reference retries
// and association linking run in a follow-up transaction after the main
// one commits, and never run when it rolls back. Sequence resynchronization
// happens outside both transactions, after the main one finishes either
// way, and its failures are warnings rather than errors.
//
// # Placeholder Mechanism
//
// A record whose non-nullable foreign key cannot be resolved at insert time
// is stored with the placeholder key so its not-null constraint holds; the
// resolver patches the real key before the deferred constraint check fires.
// A placeholder that is never patched is rejected at commit, rolling back
// the whole load.
//
// # Thread Safety
//
// Pipeline and its parts are NOT safe for concurrent use; each load run
// owns its records and its dedicated connection.
package loader

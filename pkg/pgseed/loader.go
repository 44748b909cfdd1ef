package pgseed

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Loader is the main interface for executing fixture loads.
// Implementations handle the full pipeline: fixture location,
// deserialization, constraint-suspended bulk insertion, deferred-field
// resolution, association linking, and sequence resynchronization.
type Loader interface {
	// Load executes a load using the provided configuration.
	// The report is non-nil whenever the main transaction committed,
	// even if a later phase returned an error.
	Load(ctx context.Context, config LoadConfig) (*LoadReport, error)
}

// Dumper is the interface for exporting fixtures.
// Implementations produce files in the exact format Load consumes, in
// deterministic id-ordered chunks.
type Dumper interface {
	// Dump exports fixtures using the provided configuration.
	Dump(ctx context.Context, config DumpConfig) (*DumpReport, error)
}

// Checker is the interface for validating fixtures without loading them.
type Checker interface {
	// Check locates and parses fixtures using the provided configuration.
	Check(ctx context.Context, config CheckConfig) (*CheckReport, error)
}

// LoadReport summarizes a completed load.
type LoadReport struct {
	// RunID uniquely identifies this load run.
	RunID uuid.UUID

	// Files are the fixture files processed, in load order.
	Files []FixtureFile

	// Records is the number of deserialized records.
	Records int

	// Inserted is the number of rows actually inserted (conflict-skipped
	// rows are not counted).
	Inserted int64

	// Patched is the number of deferred fields resolved within the main
	// transaction, whether against pre-existing rows or freshly inserted
	// ones.
	Patched int

	// Retried is the number of records that needed the self-reference pass.
	Retried int

	// Linked is the number of many-to-many associations relinked.
	Linked int

	// Resynced is the number of sequences advanced after the load.
	Resynced int

	// Warnings are non-fatal conditions, such as failed sequence resyncs.
	Warnings []string

	// Duration is the total wall-clock time of the run.
	Duration time.Duration
}

// DumpReport summarizes a completed dump.
type DumpReport struct {
	// Kinds is the number of entity kinds exported.
	Kinds int

	// Records is the total number of records written.
	Records int

	// Files are the written fixture files, in output order.
	Files []string

	// Duration is the total wall-clock time of the run.
	Duration time.Duration
}

// CheckReport summarizes a check run.
type CheckReport struct {
	// Files are the resolved fixture files, in check order. Checksums are
	// populated when CheckConfig.Checksum is set.
	Files []FixtureFile

	// Records is the total number of parsed records.
	Records int
}

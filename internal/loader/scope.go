package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// ConstraintScope suspends constraint enforcement for the duration of the
// main transaction and resynchronizes sequence counters once it finishes.
//
// Only constraints declared DEFERRABLE can actually be deferred; the scope
// names the ones that cannot, since forward references against them fail
// per-statement instead of at commit.
type ConstraintScope struct {
	logger pgseed.Logger
}

// NewConstraintScope creates a ConstraintScope.
//
// Panics if logger is nil.
func NewConstraintScope(logger pgseed.Logger) *ConstraintScope {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ConstraintScope{logger: logger}
}

// Defer suspends enforcement of all deferrable constraints until the
// surrounding transaction's commit point. Must run inside the main
// transaction, before the first insert.
func (s *ConstraintScope) Defer(ctx context.Context, ex Executor, schema *pgseed.Schema) error {
	if _, err := ex.Exec(ctx, "SET CONSTRAINTS ALL DEFERRED"); err != nil {
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, info := range schema.Kinds() {
		for _, fk := range info.ForeignKeys {
			if !fk.Deferrable {
				s.logger.Verbose("Constraint %s on %s (%s) is not deferrable; forward references against it fail at insert time", fk.Constraint, info.Table, fk.Column)
			}
		}
	}
	return nil
}

// Resync advances each loaded kind's sequence past the table's current
// maximum key, so ordinary inserts after the load do not collide with keys
// the bulk path wrote out-of-band. It runs on a plain connection once the
// main transaction has committed, and never rewinds a sequence.
//
// Per-kind failures are warnings: the data is already committed (or rolled
// back), and a stale counter is recoverable. Returns the number of
// sequences advanced and the warning messages.
func (s *ConstraintScope) Resync(ctx context.Context, ex Executor, infos []*pgseed.KindInfo) (int, []string) {
	var resynced int
	var warnings []string

	warn := func(info *pgseed.KindInfo, err error) {
		msg := fmt.Sprintf("sequence resync for %s failed: %v", info.Kind, err)
		s.logger.Warn("%s", msg)
		warnings = append(warnings, msg)
	}

	for _, info := range infos {
		if !info.HasAutoKey() || info.PrimaryKey == "" {
			continue
		}

		maxSQL := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s",
			pgx.Identifier{info.PrimaryKey}.Sanitize(), pgx.Identifier{info.Table}.Sanitize())

		var maxKey int64
		if err := ex.QueryRow(ctx, maxSQL).Scan(&maxKey); err != nil {
			warn(info, fmt.Errorf("failed to read max key: %w", err))
			continue
		}
		if maxKey == 0 {
			continue
		}

		var lastValue int64
		var isCalled bool
		seqSQL := fmt.Sprintf("SELECT last_value, is_called FROM %s", sanitizeQualified(info.Sequence))
		if err := ex.QueryRow(ctx, seqSQL).Scan(&lastValue, &isCalled); err != nil {
			warn(info, fmt.Errorf("failed to read sequence state: %w", err))
			continue
		}

		next := lastValue
		if isCalled {
			next = lastValue + 1
		}
		if next > maxKey {
			continue
		}

		if _, err := ex.Exec(ctx, "SELECT setval($1::regclass, $2)", info.Sequence, maxKey); err != nil {
			warn(info, fmt.Errorf("failed to advance sequence: %w", err))
			continue
		}
		s.logger.Verbose("Advanced sequence %s to %d for %s", info.Sequence, maxKey, info.Kind)
		resynced++
	}

	return resynced, warnings
}

// sanitizeQualified quotes a possibly schema-qualified relation name
// ("public.foo_id_seq") part by part.
func sanitizeQualified(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

package loader

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// DeferredResolver patches deferred foreign-key references after the bulk
// inserts have run. A pass walks the queue once; references whose target
// row cannot be found yet stay deferred and come back in the returned
// requeue. The final pass turns any remaining miss into an error.
type DeferredResolver struct {
	qb     squirrel.StatementBuilderType
	logger pgseed.Logger
}

// NewDeferredResolver creates a DeferredResolver.
//
// Panics if logger is nil.
func NewDeferredResolver(logger pgseed.Logger) *DeferredResolver {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &DeferredResolver{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}
}

// PrimeReferences resolves deferred references whose target rows already
// exist, before any insert runs. A primed field becomes a plain resolved
// value, so the insert carries the real key and conflict skipping compares
// against it instead of a placeholder. References into rows this same load
// is about to create stay deferred for the post-insert pass.
//
// Returns the number of fields primed.
func (r *DeferredResolver) PrimeReferences(ctx context.Context, ex Executor, schema *pgseed.Schema, records []*pgseed.EntityRecord) (int, error) {
	var primed int

	for _, rec := range records {
		if !rec.HasDeferred() {
			continue
		}

		var remaining []pgseed.DeferredField
		for _, df := range rec.Deferred {
			target, ok := schema.Resolve(df.Target)
			if !ok {
				return primed, fmt.Errorf("%s field %s references unknown kind %s (%s)", rec.Kind, df.Column, df.Target, rec.Ref)
			}

			value, found, err := referenceValue(ctx, ex, r.qb, target, df.Key)
			if err != nil {
				return primed, err
			}
			if !found {
				remaining = append(remaining, df)
				continue
			}

			if rec.Resolved == nil {
				rec.Resolved = make(map[string]any)
			}
			rec.Resolved[df.Column] = value
			primed++
		}
		rec.Deferred = remaining
	}

	if primed > 0 {
		r.logger.Verbose("Primed %d reference(s) against existing rows", primed)
	}
	return primed, nil
}

// ResolvePass resolves as many deferred references as the current store
// state allows. It returns the number of patched fields and the records
// that still carry deferred fields, in queue order.
//
// With finalPass set, a reference that still cannot be resolved is an
// ErrUnresolvableReference instead of a requeue.
func (r *DeferredResolver) ResolvePass(ctx context.Context, ex Executor, schema *pgseed.Schema, queue []*pgseed.EntityRecord, finalPass bool) (int, []*pgseed.EntityRecord, error) {
	var patched int
	var requeue []*pgseed.EntityRecord

	for _, rec := range queue {
		info, ok := schema.Resolve(rec.Kind)
		if !ok {
			return patched, nil, fmt.Errorf("deferred record %s has unknown kind %s", rec.Ref, rec.Kind)
		}

		n, pending, err := r.resolveRecord(ctx, ex, schema, info, rec, finalPass)
		if err != nil {
			return patched, nil, err
		}
		patched += n
		if pending {
			requeue = append(requeue, rec)
		}
	}

	if patched > 0 || len(requeue) > 0 {
		r.logger.Verbose("Reference pass patched %d field(s), %d record(s) still deferred", patched, len(requeue))
	}
	return patched, requeue, nil
}

// resolveRecord patches one record's resolvable references in a single
// UPDATE. It reports how many fields were patched and whether the record
// still has open references.
func (r *DeferredResolver) resolveRecord(ctx context.Context, ex Executor, schema *pgseed.Schema, info *pgseed.KindInfo, rec *pgseed.EntityRecord, finalPass bool) (int, bool, error) {
	patch := make(map[string]any)
	var remaining []pgseed.DeferredField

	for _, df := range rec.Deferred {
		target, ok := schema.Resolve(df.Target)
		if !ok {
			return 0, false, fmt.Errorf("%s field %s references unknown kind %s (%s)", info.Kind, df.Column, df.Target, rec.Ref)
		}

		value, found, err := referenceValue(ctx, ex, r.qb, target, df.Key)
		if err != nil {
			return 0, false, err
		}
		if !found {
			if finalPass {
				return 0, false, fmt.Errorf("%w: %s field %s references missing %s %s (%s)", pgseed.ErrUnresolvableReference, info.Kind, df.Column, df.Target, df.Key, rec.Ref)
			}
			remaining = append(remaining, df)
			continue
		}
		patch[df.Column] = value
	}

	if len(patch) == 0 {
		return 0, len(remaining) > 0, nil
	}

	// The filter must match the row as stored, so it is built before the
	// patched values replace any placeholder in the resolved set.
	filter, err := ownerFilter(info, rec)
	if err != nil {
		return 0, false, err
	}

	columns := make([]string, 0, len(patch))
	for col := range patch {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	builder := r.qb.Update(info.Table).Where(filter)
	for _, col := range columns {
		builder = builder.Set(col, patch[col])
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("failed to build reference patch for %s: %w", info.Kind, err)
	}

	tag, err := ex.Exec(ctx, sql, args...)
	if err != nil {
		return 0, false, fmt.Errorf("failed to patch references on %s %s: %w", info.Kind, rec.Ref, err)
	}
	if tag.RowsAffected() == 0 {
		if finalPass {
			return 0, false, fmt.Errorf("%w: no %s row matches %s for reference patching", pgseed.ErrUnresolvableReference, info.Kind, rec.Ref)
		}
		return 0, true, nil
	}

	if rec.Resolved == nil {
		rec.Resolved = make(map[string]any)
	}
	for col, v := range patch {
		rec.Resolved[col] = v
	}
	rec.Deferred = remaining
	return len(patch), len(remaining) > 0, nil
}

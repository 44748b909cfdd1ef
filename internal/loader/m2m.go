package loader

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// ManyToManyLinker converges association tables to the state fixtures
// declare: for each owning record, the join rows for an association field
// are replaced wholesale by the fixture's target list.
//
// An owning row that is not present in the store (its insert was skipped
// and it has no unique key match) is skipped silently. A missing target,
// by contrast, is an error: the fixture names a row that does not exist.
type ManyToManyLinker struct {
	qb     squirrel.StatementBuilderType
	logger pgseed.Logger
}

// NewManyToManyLinker creates a ManyToManyLinker.
//
// Panics if logger is nil.
func NewManyToManyLinker(logger pgseed.Logger) *ManyToManyLinker {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ManyToManyLinker{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}
}

// LinkRecord converges every association field of one record and returns
// the number of join rows written.
func (l *ManyToManyLinker) LinkRecord(ctx context.Context, ex Executor, schema *pgseed.Schema, rec *pgseed.EntityRecord) (int, error) {
	if !rec.HasAssociations() {
		return 0, nil
	}

	info, ok := schema.Resolve(rec.Kind)
	if !ok {
		return 0, fmt.Errorf("record %s has unknown kind %s", rec.Ref, rec.Kind)
	}

	ownerPK, found, err := locateOwnerPK(ctx, ex, l.qb, info, rec)
	if err != nil {
		return 0, err
	}
	if !found {
		l.logger.Verbose("Skipping associations for %s %s: owning row not present", info.Kind, rec.Ref)
		return 0, nil
	}

	var linked int
	for _, assoc := range rec.Associations {
		n, err := l.linkAssociation(ctx, ex, schema, info, assoc, ownerPK, rec.Ref)
		if err != nil {
			return linked, err
		}
		linked += n
	}
	return linked, nil
}

func (l *ManyToManyLinker) linkAssociation(ctx context.Context, ex Executor, schema *pgseed.Schema, info *pgseed.KindInfo, assoc pgseed.Association, ownerPK any, ref pgseed.RecordRef) (int, error) {
	ai, ok := info.Associations[assoc.Field]
	if !ok {
		return 0, fmt.Errorf("%s has no association field %q (%s)", info.Kind, assoc.Field, ref)
	}
	target, ok := schema.Resolve(ai.Target)
	if !ok {
		return 0, fmt.Errorf("association %s of %s targets unknown kind %s", assoc.Field, info.Kind, ai.Target)
	}

	values := make([]any, len(assoc.Targets))
	for i, key := range assoc.Targets {
		v, found, err := referenceValue(ctx, ex, l.qb, target, key)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, fmt.Errorf("%w: association %s of %s references missing %s %s (%s)", pgseed.ErrUnresolvableReference, assoc.Field, info.Kind, ai.Target, key, ref)
		}
		values[i] = v
	}

	sql, args, err := l.qb.Delete(ai.JoinTable).Where(squirrel.Eq{ai.OwnerColumn: ownerPK}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build association clear for %s.%s: %w", info.Kind, assoc.Field, err)
	}
	if _, err := ex.Exec(ctx, sql, args...); err != nil {
		return 0, fmt.Errorf("failed to clear association %s of %s %s: %w", assoc.Field, info.Kind, ref, err)
	}

	if len(values) == 0 {
		return 0, nil
	}

	maxRows := pgseed.MaxStatementParams / 2
	var linked int
	for start := 0; start < len(values); start += maxRows {
		end := start + maxRows
		if end > len(values) {
			end = len(values)
		}

		builder := l.qb.Insert(ai.JoinTable).
			Columns(ai.OwnerColumn, ai.TargetColumn).
			Suffix("ON CONFLICT DO NOTHING")
		for _, v := range values[start:end] {
			builder = builder.Values(ownerPK, v)
		}

		sql, args, err := builder.ToSql()
		if err != nil {
			return linked, fmt.Errorf("failed to build association insert for %s.%s: %w", info.Kind, assoc.Field, err)
		}

		tag, err := ex.Exec(ctx, sql, args...)
		if err != nil {
			if pgErr, ok := pgIntegrityError(err); ok {
				return linked, fmt.Errorf("%w: association %s of %s %s: %s", pgseed.ErrIntegrity, assoc.Field, info.Kind, ref, pgErr.Message)
			}
			return linked, fmt.Errorf("failed to write association %s of %s %s: %w", assoc.Field, info.Kind, ref, err)
		}
		linked += int(tag.RowsAffected())
	}
	return linked, nil
}

package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// pgIntegrityError extracts a class-23 (integrity constraint violation)
// server error, if that is what err carries.
func pgIntegrityError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return pgErr, true
	}
	return nil, false
}

// ownerFilter builds the WHERE clause that relocates a record's own row:
// by explicit primary key when the fixture carries one, otherwise by the
// kind's natural key with the values the insert actually stored. Columns
// absent from the resolved set match NULL, so rows whose nullable deferred
// references are still open can be found again.
func ownerFilter(info *pgseed.KindInfo, rec *pgseed.EntityRecord) (squirrel.Eq, error) {
	if rec.PK != nil {
		if info.PrimaryKey == "" {
			return nil, fmt.Errorf("%s has no primary key column but record %s carries one", info.Kind, rec.Ref)
		}
		return squirrel.Eq{info.PrimaryKey: rec.PK}, nil
	}

	if info.Unique.IsZero() {
		return nil, fmt.Errorf("%w: %s record %s has no primary key and %s has no unique constraint", pgseed.ErrMissingUniqueKey, info.Kind, rec.Ref, info.Table)
	}

	filter := make(squirrel.Eq, len(info.Unique.Columns))
	for _, col := range info.Unique.Columns {
		if v, ok := rec.Resolved[col]; ok {
			filter[col] = v
		} else {
			filter[col] = nil
		}
	}
	return filter, nil
}

// locateOwnerPK finds the primary key of the row a record landed on,
// whether the insert created it or an earlier load already had it. The
// second return is false when no row matches.
func locateOwnerPK(ctx context.Context, ex Executor, qb squirrel.StatementBuilderType, info *pgseed.KindInfo, rec *pgseed.EntityRecord) (any, bool, error) {
	if info.PrimaryKey == "" {
		return nil, false, fmt.Errorf("%s has no primary key column", info.Kind)
	}

	filter, err := ownerFilter(info, rec)
	if err != nil {
		return nil, false, err
	}

	sql, args, err := qb.Select(info.PrimaryKey).From(info.Table).Where(filter).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build row lookup for %s: %w", info.Kind, err)
	}

	var pk any
	if err := ex.QueryRow(ctx, sql, args...).Scan(&pk); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to locate %s row %s: %w", info.Kind, rec.Ref, err)
	}
	return pk, true, nil
}

// resolveNaturalKey maps a natural key onto the target kind's unique
// constraint and returns the primary key of the matching row. The second
// return is false when no row matches.
func resolveNaturalKey(ctx context.Context, ex Executor, qb squirrel.StatementBuilderType, target *pgseed.KindInfo, values []any) (any, bool, error) {
	if target.PrimaryKey == "" {
		return nil, false, fmt.Errorf("%s has no primary key column to resolve against", target.Kind)
	}
	if target.Unique.IsZero() {
		return nil, false, fmt.Errorf("%s has no unique constraint usable as a natural key", target.Kind)
	}
	if len(values) != len(target.Unique.Columns) {
		return nil, false, fmt.Errorf("natural key for %s has %d values, constraint %s has %d columns", target.Kind, len(values), target.Unique.Constraint, len(target.Unique.Columns))
	}

	filter := make(squirrel.Eq, len(values))
	for i, col := range target.Unique.Columns {
		filter[col] = values[i]
	}

	sql, args, err := qb.Select(target.PrimaryKey).From(target.Table).Where(filter).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build natural key lookup for %s: %w", target.Kind, err)
	}

	var pk any
	if err := ex.QueryRow(ctx, sql, args...).Scan(&pk); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to resolve natural key for %s: %w", target.Kind, err)
	}
	return pk, true, nil
}

// referenceValue turns one reference key into a primary key value. Keys
// that already carry a primary key pass through without a query; natural
// keys resolve through the target's unique constraint. The second return
// is false when a natural key matches no row.
func referenceValue(ctx context.Context, ex Executor, qb squirrel.StatementBuilderType, target *pgseed.KindInfo, key pgseed.ReferenceKey) (any, bool, error) {
	if !key.IsNatural() {
		return key.PK, true, nil
	}
	return resolveNaturalKey(ctx, ex, qb, target, key.Natural)
}

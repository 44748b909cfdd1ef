package loader

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// BulkInserter writes one kind's batch into the store as set-oriented
// conflict-tolerant inserts.
//
// Records with non-nullable deferred foreign keys receive the placeholder
// key before insertion; nullable deferred fields are omitted so the column
// stays at its default. Rows colliding with an existing unique constraint
// are skipped silently (ON CONFLICT DO NOTHING).
type BulkInserter struct {
	qb     squirrel.StatementBuilderType
	logger pgseed.Logger
}

// NewBulkInserter creates a BulkInserter.
//
// Panics if logger is nil.
func NewBulkInserter(logger pgseed.Logger) *BulkInserter {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &BulkInserter{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}
}

// InsertBatch inserts the batch inside the active transaction and returns
// the number of rows actually inserted (conflict-skipped rows are not
// counted) plus the records that carry deferred fields, for the resolver
// pass. The deferred list is returned regardless of whether each record's
// own row survived the conflict skip.
func (b *BulkInserter) InsertBatch(ctx context.Context, ex Executor, info *pgseed.KindInfo, batch *pgseed.EntityBatch) (int64, []*pgseed.EntityRecord, error) {
	deferred := batch.DeferredRecords()
	if len(batch.Records) == 0 {
		return 0, deferred, nil
	}

	var inserted int64
	for _, group := range groupBySignature(info, batch.Records) {
		n, err := b.insertGroup(ctx, ex, info, group)
		if err != nil {
			return inserted, nil, err
		}
		inserted += n
	}

	b.logger.Verbose("Inserted %d/%d rows for %s", inserted, len(batch.Records), batch.Kind)
	return inserted, deferred, nil
}

// insertGroup writes one run of identically-shaped rows, chunked to stay
// under the bind-parameter limit.
func (b *BulkInserter) insertGroup(ctx context.Context, ex Executor, info *pgseed.KindInfo, group rowGroup) (int64, error) {
	if len(group.columns) == 0 {
		return b.insertDefaultRows(ctx, ex, info, group.records)
	}

	maxRows := pgseed.MaxStatementParams / len(group.columns)
	if maxRows < 1 {
		maxRows = 1
	}

	var inserted int64
	for start := 0; start < len(group.rows); start += maxRows {
		end := start + maxRows
		if end > len(group.rows) {
			end = len(group.rows)
		}

		builder := b.qb.Insert(info.Table).
			Columns(group.columns...).
			Suffix("ON CONFLICT DO NOTHING")
		for _, row := range group.rows[start:end] {
			builder = builder.Values(row...)
		}

		sql, args, err := builder.ToSql()
		if err != nil {
			return inserted, fmt.Errorf("failed to build insert for %s: %w", info.Kind, err)
		}

		tag, err := ex.Exec(ctx, sql, args...)
		if err != nil {
			return inserted, b.wrapInsertError(err, info, group.records[start])
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// insertDefaultRows handles records with no settable columns at all, which
// the multi-row builder cannot express.
func (b *BulkInserter) insertDefaultRows(ctx context.Context, ex Executor, info *pgseed.KindInfo, records []*pgseed.EntityRecord) (int64, error) {
	sql := fmt.Sprintf("INSERT INTO %s DEFAULT VALUES ON CONFLICT DO NOTHING", pgx.Identifier{info.Table}.Sanitize())

	var inserted int64
	for _, rec := range records {
		tag, err := ex.Exec(ctx, sql)
		if err != nil {
			return inserted, b.wrapInsertError(err, info, rec)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func (b *BulkInserter) wrapInsertError(err error, info *pgseed.KindInfo, first *pgseed.EntityRecord) error {
	if pgErr, ok := pgIntegrityError(err); ok {
		return fmt.Errorf("%w: kind %s: %s (first record: %s)", pgseed.ErrIntegrity, info.Kind, pgErr.Message, first.Ref)
	}
	return fmt.Errorf("failed to insert %s rows: %w", info.Kind, err)
}

// rowGroup is a maximal run of records sharing one column signature, in
// batch order.
type rowGroup struct {
	columns []string
	rows    [][]any
	records []*pgseed.EntityRecord
}

// groupBySignature turns records into insert rows and groups consecutive
// records with identical column sets, preserving batch order. Placeholder
// substitution happens here: the placeholder is written into the record's
// resolved set so later phases filter by the value actually stored.
func groupBySignature(info *pgseed.KindInfo, records []*pgseed.EntityRecord) []rowGroup {
	var groups []rowGroup

	for _, rec := range records {
		columns := insertColumns(info, rec)
		row := make([]any, len(columns))
		for i, col := range columns {
			if info.PrimaryKey != "" && col == info.PrimaryKey && rec.PK != nil {
				row[i] = rec.PK
				continue
			}
			row[i] = rec.Resolved[col]
		}

		if n := len(groups); n > 0 && sameColumns(groups[n-1].columns, columns) {
			groups[n-1].rows = append(groups[n-1].rows, row)
			groups[n-1].records = append(groups[n-1].records, rec)
			continue
		}
		groups = append(groups, rowGroup{
			columns: columns,
			rows:    [][]any{row},
			records: []*pgseed.EntityRecord{rec},
		})
	}

	return groups
}

// insertColumns computes a record's column signature in sorted order: its
// resolved fields, the primary key when explicit, and the placeholder for
// every non-nullable deferred foreign key.
func insertColumns(info *pgseed.KindInfo, rec *pgseed.EntityRecord) []string {
	for _, df := range rec.Deferred {
		if df.Nullable {
			continue
		}
		if _, done := rec.Resolved[df.Column]; !done {
			if rec.Resolved == nil {
				rec.Resolved = make(map[string]any)
			}
			rec.Resolved[df.Column] = pgseed.PlaceholderKey
		}
	}

	columns := make([]string, 0, len(rec.Resolved)+1)
	for col := range rec.Resolved {
		columns = append(columns, col)
	}
	if info.PrimaryKey != "" && rec.PK != nil {
		if _, dup := rec.Resolved[info.PrimaryKey]; !dup {
			columns = append(columns, info.PrimaryKey)
		}
	}
	sort.Strings(columns)
	return columns
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package dump

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Querier is the read surface the exporter needs. *pgxpool.Pool and
// *pgxpool.Conn both satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Options control one kind's export.
type Options struct {
	// ChunkSize caps the records per output chunk; non-positive means
	// pgseed.DefaultChunkSize.
	ChunkSize int

	// NaturalKeys replaces foreign-key and association values with the
	// target row's unique-key tuple wherever the target kind has one.
	NaturalKeys bool
}

// Chunk is one encoded fixture file's worth of records.
type Chunk struct {
	Records int
	Data    []byte
}

// Exporter reads a kind's rows and encodes them as fixture chunks.
type Exporter struct {
	qb     squirrel.StatementBuilderType
	logger pgseed.Logger
}

// NewExporter creates an Exporter.
//
// Panics if logger is nil.
func NewExporter(logger pgseed.Logger) *Exporter {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Exporter{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}
}

// ExportKind exports every row of the kind in primary-key order. The last
// chunk may be short; a kind with no rows still yields one empty chunk so
// the written series resolves under a "<kind>_*" token.
func (e *Exporter) ExportKind(ctx context.Context, q Querier, schema *pgseed.Schema, info *pgseed.KindInfo, opts Options) ([]Chunk, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = pgseed.DefaultChunkSize
	}

	naturals, err := e.naturalLookups(ctx, q, schema, info, opts)
	if err != nil {
		return nil, err
	}
	assocs, err := e.associationRows(ctx, q, info)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(info.Columns))
	pkIndex := -1
	for i, col := range info.Columns {
		columns[i] = col.Name
		if col.Name == info.PrimaryKey {
			pkIndex = i
		}
	}

	builder := e.qb.Select(columns...).From(info.Table)
	if info.PrimaryKey != "" {
		builder = builder.OrderBy(info.PrimaryKey)
	} else if !info.Unique.IsZero() {
		builder = builder.OrderBy(info.Unique.Columns...)
	}
	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s export query: %w", info.Kind, err)
	}

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", info.Kind, err)
	}
	defer rows.Close()

	var (
		chunks  []Chunk
		pending []wireRecord
		total   int
	)
	flush := func() error {
		data, err := encodeRecords(pending)
		if err != nil {
			return err
		}
		chunks = append(chunks, Chunk{Records: len(pending), Data: data})
		total += len(pending)
		pending = nil
		return nil
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", info.Kind, err)
		}
		rec, err := e.buildWire(info, values, pkIndex, naturals, assocs, opts)
		if err != nil {
			return nil, err
		}
		pending = append(pending, rec)
		if len(pending) == opts.ChunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", info.Kind, err)
	}
	if len(pending) > 0 || len(chunks) == 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	e.logger.Verbose("Exported %d record(s) of %s into %d chunk(s)", total, info.Kind, len(chunks))
	return chunks, nil
}

// buildWire assembles one record: pk from its column, scalar and
// foreign-key fields in column order, association fields last in name
// order.
func (e *Exporter) buildWire(info *pgseed.KindInfo, values []any, pkIndex int, naturals map[pgseed.Kind]map[any][]any, assocs map[string]map[any][]any, opts Options) (wireRecord, error) {
	rec := wireRecord{Model: string(info.Kind)}

	pk := json.RawMessage("null")
	if pkIndex >= 0 {
		wired, err := wireValue(values[pkIndex])
		if err != nil {
			return rec, fmt.Errorf("%s primary key: %w", info.Kind, err)
		}
		if pk, err = marshalValue(wired); err != nil {
			return rec, err
		}
	}
	rec.PK = pk

	for i, col := range info.Columns {
		if i == pkIndex {
			continue
		}
		value := values[i]

		if fk, isFK := info.ForeignKeys[col.Name]; isFK && opts.NaturalKeys && value != nil {
			if lookup := naturals[fk.Target]; lookup != nil {
				if tuple, hit := lookup[normalizeKey(value)]; hit {
					converted, err := wireSlice(tuple)
					if err != nil {
						return rec, err
					}
					raw, err := marshalValue(converted)
					if err != nil {
						return rec, err
					}
					rec.Fields = append(rec.Fields, wireField{Name: fieldName(info, col.Name), Value: raw})
					continue
				}
				e.logger.Verbose("No %s row for %s.%s = %v; emitting the raw key", fk.Target, info.Kind, col.Name, value)
			}
		}

		wired, err := wireValue(value)
		if err != nil {
			return rec, fmt.Errorf("%s.%s: %w", info.Kind, col.Name, err)
		}
		raw, err := marshalValue(wired)
		if err != nil {
			return rec, err
		}
		rec.Fields = append(rec.Fields, wireField{Name: fieldName(info, col.Name), Value: raw})
	}

	if pkIndex < 0 || len(info.Associations) == 0 {
		return rec, nil
	}
	owner := normalizeKey(values[pkIndex])
	for _, field := range sortedAssociationFields(info) {
		ai := info.Associations[field]
		targets := assocs[field][owner]

		out := make([]any, 0, len(targets))
		for _, target := range targets {
			if opts.NaturalKeys {
				if lookup := naturals[ai.Target]; lookup != nil {
					if tuple, hit := lookup[normalizeKey(target)]; hit {
						converted, err := wireSlice(tuple)
						if err != nil {
							return rec, err
						}
						out = append(out, converted)
						continue
					}
				}
			}
			wired, err := wireValue(target)
			if err != nil {
				return rec, fmt.Errorf("%s.%s: %w", info.Kind, field, err)
			}
			out = append(out, wired)
		}

		raw, err := marshalValue(out)
		if err != nil {
			return rec, err
		}
		rec.Fields = append(rec.Fields, wireField{Name: field, Value: raw})
	}
	return rec, nil
}

// naturalLookups loads pk-to-unique-tuple maps for every referenced kind
// that has a usable unique key. Lookups are read before the main row scan
// so the export stays a single-connection affair.
func (e *Exporter) naturalLookups(ctx context.Context, q Querier, schema *pgseed.Schema, info *pgseed.KindInfo, opts Options) (map[pgseed.Kind]map[any][]any, error) {
	if !opts.NaturalKeys {
		return nil, nil
	}

	targets := make(map[pgseed.Kind]*pgseed.KindInfo)
	for _, fk := range info.ForeignKeys {
		if target, ok := schema.Resolve(fk.Target); ok {
			targets[target.Kind] = target
		}
	}
	for _, ai := range info.Associations {
		if target, ok := schema.Resolve(ai.Target); ok {
			targets[target.Kind] = target
		}
	}

	lookups := make(map[pgseed.Kind]map[any][]any, len(targets))
	for kind, target := range targets {
		if target.PrimaryKey == "" || target.Unique.IsZero() {
			continue
		}
		lookup, err := e.naturalLookup(ctx, q, target)
		if err != nil {
			return nil, err
		}
		lookups[kind] = lookup
	}
	return lookups, nil
}

func (e *Exporter) naturalLookup(ctx context.Context, q Querier, target *pgseed.KindInfo) (map[any][]any, error) {
	columns := append([]string{target.PrimaryKey}, target.Unique.Columns...)
	sqlStr, args, err := e.qb.Select(columns...).From(target.Table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s key lookup: %w", target.Kind, err)
	}

	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s keys: %w", target.Kind, err)
	}
	defer rows.Close()

	lookup := make(map[any][]any)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s key row: %w", target.Kind, err)
		}
		tuple := make([]any, len(values)-1)
		copy(tuple, values[1:])
		lookup[normalizeKey(values[0])] = tuple
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s keys: %w", target.Kind, err)
	}
	return lookup, nil
}

// associationRows loads each association's join rows into an owner-keyed
// map, ordered by owner then target so output is stable.
func (e *Exporter) associationRows(ctx context.Context, q Querier, info *pgseed.KindInfo) (map[string]map[any][]any, error) {
	if len(info.Associations) == 0 {
		return nil, nil
	}

	out := make(map[string]map[any][]any, len(info.Associations))
	for _, field := range sortedAssociationFields(info) {
		ai := info.Associations[field]
		sqlStr, args, err := e.qb.
			Select(ai.OwnerColumn, ai.TargetColumn).
			From(ai.JoinTable).
			OrderBy(ai.OwnerColumn, ai.TargetColumn).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build %s association query: %w", field, err)
		}

		rows, err := q.Query(ctx, sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s associations: %w", field, err)
		}

		links := make(map[any][]any)
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s association row: %w", field, err)
			}
			owner := normalizeKey(values[0])
			links[owner] = append(links[owner], values[1])
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read %s associations: %w", field, err)
		}
		rows.Close()
		out[field] = links
	}
	return out, nil
}

// fieldName returns the name a column serializes under. Foreign keys drop
// their id suffix when the short name doesn't collide with another column
// or an association, mirroring how field binding reads them back.
func fieldName(info *pgseed.KindInfo, column string) string {
	if _, isFK := info.ForeignKeys[column]; !isFK {
		return column
	}
	short := strings.TrimSuffix(column, "_id")
	if short == "" || short == column {
		return column
	}
	if _, taken := info.Associations[short]; taken {
		return column
	}
	if _, taken := info.Column(short); taken {
		return column
	}
	return short
}

func sortedAssociationFields(info *pgseed.KindInfo) []string {
	fields := make([]string, 0, len(info.Associations))
	for field := range info.Associations {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// normalizeKey widens integer keys so join-table and lookup values compare
// equal regardless of the column's integer width.
func normalizeKey(v any) any {
	switch n := v.(type) {
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int:
		return int64(n)
	}
	return v
}

package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// DefaultSchema is the PostgreSQL schema inspected when none is configured.
const DefaultSchema = "public"

// Querier is the query surface the inspector needs.
// *pgxpool.Pool and *pgxpool.Conn both satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Inspector reads the target database's catalogs into the pgseed.Schema model.
type Inspector struct {
	querier Querier
	logger  pgseed.Logger
}

// NewInspector creates an Inspector with all dependencies injected.
//
// Panics if any dependency is nil. This is intentional fail-fast behavior
// to prevent cryptic nil pointer dereferences later.
func NewInspector(querier Querier, logger pgseed.Logger) *Inspector {
	if querier == nil {
		panic("querier cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Inspector{querier: querier, logger: logger}
}

// Inspect introspects one schema (DefaultSchema when schemaName is empty)
// and returns the entity-kind model. The table map (kind tag -> table name)
// overrides the conventional tag derivation and forces mapped tables to be
// entity kinds even when they look like association tables.
func (i *Inspector) Inspect(ctx context.Context, schemaName string, tableMap map[string]string) (*pgseed.Schema, error) {
	if schemaName == "" {
		schemaName = DefaultSchema
	}

	facts, err := i.loadCatalog(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	kindByTable, err := reverseTableMap(tableMap)
	if err != nil {
		return nil, err
	}

	infos, err := i.classify(facts, kindByTable)
	if err != nil {
		return nil, err
	}

	i.logger.Verbose("Introspected schema %q: %d entity kinds", schemaName, len(infos))
	return pgseed.NewSchema(infos), nil
}

// tableFacts is the raw catalog data for one table before classification.
type tableFacts struct {
	name     string
	columns  []pgseed.ColumnInfo
	pkCols   []string
	sequence string
	foreign  []fkFact
	uniques  []uniqueFact
}

type fkFact struct {
	column      string
	targetTable string
	constraint  string
	deferrable  bool
}

type uniqueFact struct {
	constraint string
	columns    []string
}

// columnOrdinal returns the position of a column in the table, or len(columns)
// when absent, so missing columns sort last.
func (f *tableFacts) columnOrdinal(name string) int {
	for i, c := range f.columns {
		if c.Name == name {
			return i
		}
	}
	return len(f.columns)
}

func (i *Inspector) loadCatalog(ctx context.Context, schemaName string) (map[string]*tableFacts, error) {
	facts := make(map[string]*tableFacts)

	get := func(table string) *tableFacts {
		f, ok := facts[table]
		if !ok {
			f = &tableFacts{name: table}
			facts[table] = f
		}
		return f
	}

	if err := i.loadColumns(ctx, schemaName, get); err != nil {
		return nil, err
	}
	if err := i.loadPrimaryKeys(ctx, schemaName, facts); err != nil {
		return nil, err
	}
	if err := i.loadForeignKeys(ctx, schemaName, facts); err != nil {
		return nil, err
	}
	if err := i.loadUniqueConstraints(ctx, schemaName, facts); err != nil {
		return nil, err
	}

	return facts, nil
}

func (i *Inspector) loadColumns(ctx context.Context, schemaName string, get func(string) *tableFacts) error {
	rows, err := i.querier.Query(ctx, queryColumns, schemaName)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table string
		var col pgseed.ColumnInfo
		if err := rows.Scan(&table, &col.Name, &col.Nullable, &col.HasDefault, &col.DataType); err != nil {
			return fmt.Errorf("failed to scan column row: %w", err)
		}
		f := get(table)
		f.columns = append(f.columns, col)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read column rows: %w", err)
	}
	return nil
}

func (i *Inspector) loadPrimaryKeys(ctx context.Context, schemaName string, facts map[string]*tableFacts) error {
	rows, err := i.querier.Query(ctx, queryPrimaryKeys, schemaName)
	if err != nil {
		return fmt.Errorf("failed to query primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, sequence string
		if err := rows.Scan(&table, &column, &sequence); err != nil {
			return fmt.Errorf("failed to scan primary key row: %w", err)
		}
		f, ok := facts[table]
		if !ok {
			continue
		}
		f.pkCols = append(f.pkCols, column)
		if sequence != "" && f.sequence == "" {
			f.sequence = sequence
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read primary key rows: %w", err)
	}
	return nil
}

func (i *Inspector) loadForeignKeys(ctx context.Context, schemaName string, facts map[string]*tableFacts) error {
	rows, err := i.querier.Query(ctx, queryForeignKeys, schemaName)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table string
		var fk fkFact
		if err := rows.Scan(&table, &fk.column, &fk.targetTable, &fk.constraint, &fk.deferrable); err != nil {
			return fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		f, ok := facts[table]
		if !ok {
			continue
		}
		f.foreign = append(f.foreign, fk)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read foreign key rows: %w", err)
	}
	return nil
}

func (i *Inspector) loadUniqueConstraints(ctx context.Context, schemaName string, facts map[string]*tableFacts) error {
	rows, err := i.querier.Query(ctx, queryUniqueConstraints, schemaName)
	if err != nil {
		return fmt.Errorf("failed to query unique constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, constraint, column string
		if err := rows.Scan(&table, &constraint, &column); err != nil {
			return fmt.Errorf("failed to scan unique constraint row: %w", err)
		}
		f, ok := facts[table]
		if !ok {
			continue
		}
		// Rows arrive in (constraint, position) order; append to the open
		// constraint or start a new one.
		if n := len(f.uniques); n > 0 && f.uniques[n-1].constraint == constraint {
			f.uniques[n-1].columns = append(f.uniques[n-1].columns, column)
		} else {
			f.uniques = append(f.uniques, uniqueFact{constraint: constraint, columns: []string{column}})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read unique constraint rows: %w", err)
	}
	return nil
}

// classify partitions tables into entity kinds and association tables and
// builds the KindInfo set.
func (i *Inspector) classify(facts map[string]*tableFacts, kindByTable map[string]pgseed.Kind) ([]*pgseed.KindInfo, error) {
	tables := make([]string, 0, len(facts))
	for name := range facts {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	kindFor := func(table string) pgseed.Kind {
		if kind, ok := kindByTable[table]; ok {
			return kind
		}
		return conventionKind(table)
	}

	// First pass: decide which tables are association tables. A table map
	// entry pins the table as an entity kind regardless of shape.
	joins := make(map[string]bool)
	for _, name := range tables {
		if _, forced := kindByTable[name]; forced {
			continue
		}
		if isAssociationTable(facts[name]) {
			joins[name] = true
		}
	}

	buildEntityInfo := func(f *tableFacts) *pgseed.KindInfo {
		info := &pgseed.KindInfo{
			Kind:         kindFor(f.name),
			Table:        f.name,
			Columns:      f.columns,
			Sequence:     f.sequence,
			ForeignKeys:  make(map[string]pgseed.ForeignKeyInfo, len(f.foreign)),
			Associations: make(map[string]pgseed.AssociationInfo),
		}
		if len(f.pkCols) == 1 {
			info.PrimaryKey = f.pkCols[0]
		}
		for _, fk := range f.foreign {
			col, _ := info.Column(fk.column)
			info.ForeignKeys[fk.column] = pgseed.ForeignKeyInfo{
				Column:     fk.column,
				Target:     kindFor(fk.targetTable),
				Nullable:   col.Nullable,
				Deferrable: fk.deferrable,
				Constraint: fk.constraint,
			}
		}
		info.Unique = selectUniqueSpec(f.uniques, info.PrimaryKey)
		return info
	}

	infos := make(map[string]*pgseed.KindInfo)
	for _, name := range tables {
		if joins[name] {
			continue
		}
		infos[name] = buildEntityInfo(facts[name])
	}

	// Second pass: attach association tables to their owning kind. A join
	// table whose owner cannot be placed falls back to being an entity kind.
	for _, name := range tables {
		if !joins[name] {
			continue
		}
		f := facts[name]
		owner, target, field := resolveAssociationSides(f)
		ownerInfo, ok := infos[owner.targetTable]
		if !ok {
			i.logger.Verbose("Table %q looks like an association table but its owner %q is not an entity kind; treating it as an entity kind", name, owner.targetTable)
			infos[name] = buildEntityInfo(f)
			continue
		}
		if _, dup := ownerInfo.Associations[field]; dup {
			return nil, fmt.Errorf("kind %q has two association tables answering to field %q", ownerInfo.Kind, field)
		}
		ownerInfo.Associations[field] = pgseed.AssociationInfo{
			Field:        field,
			JoinTable:    name,
			OwnerColumn:  owner.column,
			TargetColumn: target.column,
			Target:       kindFor(target.targetTable),
		}
		i.logger.Verbose("Table %q surfaces as association %q on kind %q", name, field, ownerInfo.Kind)
	}

	out := make([]*pgseed.KindInfo, 0, len(infos))
	for _, name := range tables {
		if info, ok := infos[name]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// conventionKind derives a kind tag from a table name: the first underscore
// separates the app half from the entity half ("shop_product" -> "shop.product").
// Tables without an underscore keep their bare name as the tag.
func conventionKind(table string) pgseed.Kind {
	if i := strings.Index(table, "_"); i > 0 && i < len(table)-1 {
		return pgseed.Kind(table[:i] + "." + table[i+1:])
	}
	return pgseed.Kind(table)
}

// reverseTableMap inverts kind->table into table->kind, rejecting maps that
// point two kinds at the same table.
func reverseTableMap(tableMap map[string]string) (map[string]pgseed.Kind, error) {
	if len(tableMap) == 0 {
		return nil, nil
	}

	kinds := make([]string, 0, len(tableMap))
	for kind := range tableMap {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	out := make(map[string]pgseed.Kind, len(tableMap))
	for _, kind := range kinds {
		table := tableMap[kind]
		if prev, dup := out[table]; dup {
			return nil, fmt.Errorf("table map assigns table %q to both %q and %q", table, prev, kind)
		}
		out[table] = pgseed.Kind(kind)
	}
	return out, nil
}

// isAssociationTable reports whether a table has the join-table shape:
// exactly two single-column foreign keys, no other columns beyond an
// optional surrogate primary key, and a unique constraint (or the primary
// key itself) spanning both foreign-key columns.
func isAssociationTable(f *tableFacts) bool {
	if len(f.foreign) != 2 {
		return false
	}
	a, b := f.foreign[0].column, f.foreign[1].column
	if a == b {
		return false
	}

	for _, c := range f.columns {
		if c.Name == a || c.Name == b {
			continue
		}
		if len(f.pkCols) == 1 && c.Name == f.pkCols[0] {
			continue
		}
		return false
	}

	if columnSetEquals(f.pkCols, a, b) {
		return true
	}
	for _, u := range f.uniques {
		if columnSetEquals(u.columns, a, b) {
			return true
		}
	}
	return false
}

func columnSetEquals(cols []string, a, b string) bool {
	if len(cols) != 2 {
		return false
	}
	return (cols[0] == a && cols[1] == b) || (cols[0] == b && cols[1] == a)
}

// resolveAssociationSides decides which foreign key of a join table is the
// owner and derives the fixture field name.
//
// The owning side is the referenced table whose name prefixes the join
// table's name (Django names join tables "<owner table>_<field>"); the
// longer prefix wins when both sides match, and a self-referencing table
// prefers its "from_" column. Without any prefix match the first foreign
// key in column order owns the association and the full table name serves
// as the field name.
func resolveAssociationSides(f *tableFacts) (owner, target fkFact, field string) {
	first, second := f.foreign[0], f.foreign[1]
	if f.columnOrdinal(second.column) < f.columnOrdinal(first.column) {
		first, second = second, first
	}

	firstPrefix := strings.HasPrefix(f.name, first.targetTable+"_")
	secondPrefix := strings.HasPrefix(f.name, second.targetTable+"_")

	switch {
	case first.targetTable == second.targetTable && firstPrefix:
		owner, target = first, second
		if strings.HasPrefix(second.column, "from_") {
			owner, target = second, first
		}
		field = strings.TrimPrefix(f.name, owner.targetTable+"_")
	case firstPrefix && secondPrefix:
		owner, target = first, second
		if len(second.targetTable) > len(first.targetTable) {
			owner, target = second, first
		}
		field = strings.TrimPrefix(f.name, owner.targetTable+"_")
	case firstPrefix:
		owner, target = first, second
		field = strings.TrimPrefix(f.name, owner.targetTable+"_")
	case secondPrefix:
		owner, target = second, first
		field = strings.TrimPrefix(f.name, owner.targetTable+"_")
	default:
		owner, target = first, second
		field = f.name
	}
	return owner, target, field
}

// selectUniqueSpec picks the kind's unique key: the first multi-column
// unique constraint in definition order, else the first single-column
// unique constraint other than the primary key.
func selectUniqueSpec(uniques []uniqueFact, primaryKey string) pgseed.UniqueKeySpec {
	for _, u := range uniques {
		if len(u.columns) > 1 {
			return pgseed.UniqueKeySpec{Constraint: u.constraint, Columns: u.columns}
		}
	}
	for _, u := range uniques {
		if len(u.columns) == 1 && u.columns[0] != primaryKey {
			return pgseed.UniqueKeySpec{Constraint: u.constraint, Columns: u.columns}
		}
	}
	return pgseed.UniqueKeySpec{}
}

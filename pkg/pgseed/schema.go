package pgseed

import "sort"

// ColumnInfo describes one table column.
type ColumnInfo struct {
	Name       string
	Nullable   bool
	HasDefault bool
	DataType   string
}

// ForeignKeyInfo describes a foreign-key column of a kind.
type ForeignKeyInfo struct {
	// Column is the constrained column name (e.g. "author_id").
	Column string

	// Target is the referenced kind.
	Target Kind

	// Nullable reports whether the column accepts NULL.
	Nullable bool

	// Deferrable reports whether the constraint can be deferred to commit.
	// Forward references against non-deferrable constraints fail at insert.
	Deferrable bool

	// Constraint is the constraint name, for diagnostics.
	Constraint string
}

// UniqueKeySpec is the column set used to relocate a row by value when its
// assigned primary key is unknown to the caller: either a composite
// unique-together constraint or the first single-column unique constraint
// other than the primary key.
type UniqueKeySpec struct {
	// Constraint is the backing constraint name, for diagnostics.
	Constraint string

	// Columns are the constrained columns, in constraint definition order.
	Columns []string
}

// IsZero reports whether the kind has no usable unique key.
func (u UniqueKeySpec) IsZero() bool {
	return len(u.Columns) == 0
}

// AssociationInfo describes a many-to-many association surfaced as a fixture
// field on the owning kind, backed by a join table of exactly two foreign keys.
type AssociationInfo struct {
	// Field is the fixture field name the association answers to (e.g. "tags").
	Field string

	// JoinTable is the association table name.
	JoinTable string

	// OwnerColumn is the join-table column referencing the owning kind.
	OwnerColumn string

	// TargetColumn is the join-table column referencing the target kind.
	TargetColumn string

	// Target is the kind on the far side of the association.
	Target Kind
}

// FieldBinding is what a fixture field name resolves to on a kind: a plain
// column, a foreign-key column, or a many-to-many association.
// Exactly one of Column and Association is non-nil; ForeignKey is non-nil
// only when Column is the constrained column of a foreign key.
type FieldBinding struct {
	Column      *ColumnInfo
	ForeignKey  *ForeignKeyInfo
	Association *AssociationInfo
}

// KindInfo is everything the loader needs to know about one entity kind.
type KindInfo struct {
	// Kind is the fixture tag.
	Kind Kind

	// Table is the resolved table name.
	Table string

	// Columns lists the table's columns in ordinal order.
	Columns []ColumnInfo

	// PrimaryKey is the primary-key column name, or "" when the table has none.
	PrimaryKey string

	// Sequence is the primary key's serial/identity sequence (schema-qualified),
	// or "" when keys are not auto-assigned.
	Sequence string

	// ForeignKeys maps constrained column name to its foreign key.
	ForeignKeys map[string]ForeignKeyInfo

	// Unique is the kind's unique key spec; zero when the schema offers none.
	Unique UniqueKeySpec

	// Associations maps fixture field name to many-to-many association.
	Associations map[string]AssociationInfo
}

// Column returns the column with the given name.
func (k *KindInfo) Column(name string) (ColumnInfo, bool) {
	for _, c := range k.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// BindField resolves a fixture field name against the kind.
//
// Foreign-key fields are serialized under their relation name ("author"),
// while the column carries an id suffix ("author_id"); both spellings bind.
// Associations bind by their field name only.
func (k *KindInfo) BindField(name string) (FieldBinding, bool) {
	if assoc, ok := k.Associations[name]; ok {
		return FieldBinding{Association: &assoc}, true
	}

	for _, candidate := range []string{name, name + "_id"} {
		col, ok := k.Column(candidate)
		if !ok {
			continue
		}
		binding := FieldBinding{Column: &col}
		if fk, ok := k.ForeignKeys[candidate]; ok {
			binding.ForeignKey = &fk
		}
		return binding, true
	}

	return FieldBinding{}, false
}

// HasAutoKey reports whether the store assigns the kind's primary keys.
func (k *KindInfo) HasAutoKey() bool {
	return k.Sequence != ""
}

// Schema is the introspected model of the target database, keyed by kind.
type Schema struct {
	kinds  map[Kind]*KindInfo
	tables map[string]*KindInfo
}

// NewSchema builds a Schema from kind infos.
// Panics if two infos share a kind or a table (programmer error in the
// inspector).
func NewSchema(infos []*KindInfo) *Schema {
	kinds := make(map[Kind]*KindInfo, len(infos))
	tables := make(map[string]*KindInfo, len(infos))
	for _, info := range infos {
		if _, dup := kinds[info.Kind]; dup {
			panic("duplicate kind: " + string(info.Kind))
		}
		if _, dup := tables[info.Table]; dup {
			panic("duplicate table: " + info.Table)
		}
		kinds[info.Kind] = info
		tables[info.Table] = info
	}
	return &Schema{kinds: kinds, tables: tables}
}

// Kind returns the info for a kind.
func (s *Schema) Kind(k Kind) (*KindInfo, bool) {
	info, ok := s.kinds[k]
	return info, ok
}

// Resolve returns the info a fixture tag binds to: the kind itself when
// known, otherwise the kind whose table matches the tag's conventional
// table name. The fallback covers tags whose app half contains an
// underscore, where deriving the tag back from the table name is ambiguous.
func (s *Schema) Resolve(k Kind) (*KindInfo, bool) {
	if info, ok := s.kinds[k]; ok {
		return info, true
	}
	info, ok := s.tables[k.DefaultTable()]
	return info, ok
}

// Kinds returns every known kind in deterministic (sorted tag) order.
func (s *Schema) Kinds() []*KindInfo {
	tags := make([]string, 0, len(s.kinds))
	for k := range s.kinds {
		tags = append(tags, string(k))
	}
	sort.Strings(tags)
	out := make([]*KindInfo, len(tags))
	for i, tag := range tags {
		out[i] = s.kinds[Kind(tag)]
	}
	return out
}

// Len returns the number of known kinds.
func (s *Schema) Len() int {
	return len(s.kinds)
}

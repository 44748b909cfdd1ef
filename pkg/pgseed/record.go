package pgseed

import (
	"fmt"
	"strings"
)

// Kind identifies an entity kind by its fixture tag, e.g. "shop.product".
// The tag is the "<app>.<name>" pair used in fixture files' model field.
type Kind string

// ParseKind validates a kind tag and returns it as a Kind.
// A valid tag is "<app>.<name>" where both halves are non-empty and consist
// of lowercase letters, digits, and underscores.
func ParseKind(tag string) (Kind, error) {
	app, name, ok := strings.Cut(tag, ".")
	if !ok || app == "" || name == "" || strings.Contains(name, ".") {
		return "", fmt.Errorf("kind tag %q is not of the form app.name", tag)
	}
	for _, part := range []string{app, name} {
		for _, r := range part {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
				return "", fmt.Errorf("kind tag %q contains invalid character %q", tag, r)
			}
		}
	}
	return Kind(tag), nil
}

// App returns the application half of the tag ("shop" for "shop.product").
func (k Kind) App() string {
	app, _, _ := strings.Cut(string(k), ".")
	return app
}

// Name returns the entity half of the tag ("product" for "shop.product").
func (k Kind) Name() string {
	_, name, _ := strings.Cut(string(k), ".")
	return name
}

// DefaultTable returns the conventional table name for the kind:
// "shop.product" -> "shop_product". A table map entry overrides this.
func (k Kind) DefaultTable() string {
	return strings.ReplaceAll(string(k), ".", "_")
}

func (k Kind) String() string {
	return string(k)
}

// ReferenceKey is the key carried by a reference to another record: either a
// primary-key scalar or an ordered natural-key tuple (the target kind's
// unique-key column values, in spec order).
//
// Exactly one of PK and Natural is set.
type ReferenceKey struct {
	PK      any
	Natural []any
}

// ByPK builds a primary-key reference.
func ByPK(pk any) ReferenceKey {
	return ReferenceKey{PK: pk}
}

// ByNatural builds a natural-key reference.
func ByNatural(values []any) ReferenceKey {
	return ReferenceKey{Natural: values}
}

// IsNatural reports whether the reference is by natural key.
func (r ReferenceKey) IsNatural() bool {
	return r.Natural != nil
}

func (r ReferenceKey) String() string {
	if r.IsNatural() {
		parts := make([]string, len(r.Natural))
		for i, v := range r.Natural {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprintf("%v", r.PK)
}

// DeferredField describes a foreign-key field whose real value cannot be set
// at initial insert because it references a row not yet guaranteed to exist.
//
// Invariant: when Nullable is false the row receives the placeholder
// sentinel key at insert time so its not-null constraint holds while the
// real key is pending; nullable fields are simply omitted from the insert.
type DeferredField struct {
	// Column is the table column the field maps to (e.g. "author_id").
	Column string

	// Nullable reports whether the column accepts NULL.
	Nullable bool

	// Target is the kind the reference points at.
	Target Kind

	// Key is the referenced key, by primary or natural key.
	Key ReferenceKey
}

// Association describes a many-to-many field: the ordered set of target keys
// the owning record's association must converge to.
type Association struct {
	// Field is the fixture field name (e.g. "tags").
	Field string

	// Targets are the referenced keys, in fixture order.
	Targets []ReferenceKey
}

// RecordRef identifies a record's origin for error attribution.
type RecordRef struct {
	// File is the absolute path of the fixture file.
	File string

	// Index is the zero-based position of the record within the file.
	Index int

	// Offset is the byte offset at which the record's value begins.
	Offset int64
}

func (r RecordRef) String() string {
	return fmt.Sprintf("%s: record %d (offset %d)", r.File, r.Index, r.Offset)
}

// EntityRecord is one deserialized fixture record.
//
// Invariant: a field appears in exactly one of Resolved and Deferred.
// Many-to-many fields appear only in Associations.
//
// Lifecycle: created by the record decoder, mutated by the bulk inserter
// (non-nullable deferred columns gain the placeholder key in Resolved),
// consumed by the deferred resolver, and finally by the association linker.
type EntityRecord struct {
	// Kind is the record's entity kind.
	Kind Kind

	// PK is the explicit primary-key value, or nil when the store assigns one.
	PK any

	// Resolved maps column name to a value settable at insert time.
	Resolved map[string]any

	// Deferred lists fields that need the post-insert resolution pass,
	// in fixture field order.
	Deferred []DeferredField

	// Associations lists the record's many-to-many fields, in fixture order.
	Associations []Association

	// Ref locates the record in its source file.
	Ref RecordRef
}

// HasDeferred reports whether the record needs the deferred-resolution pass.
func (r *EntityRecord) HasDeferred() bool {
	return len(r.Deferred) > 0
}

// HasAssociations reports whether the record carries many-to-many data.
func (r *EntityRecord) HasAssociations() bool {
	return len(r.Associations) > 0
}

// EntityBatch is every record of one kind from one load run, in file order.
//
// Insertion order within a batch is preserved on bulk insert. Sequence
// resynchronization depends only on the final maximum key, not on order.
type EntityBatch struct {
	Kind    Kind
	Records []*EntityRecord
}

// DeferredRecords returns the records that carry at least one deferred field,
// preserving batch order.
func (b *EntityBatch) DeferredRecords() []*EntityRecord {
	var out []*EntityRecord
	for _, rec := range b.Records {
		if rec.HasDeferred() {
			out = append(out, rec)
		}
	}
	return out
}

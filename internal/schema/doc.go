// Package schema introspects a PostgreSQL database into the entity-kind
// model the load and dump pipelines work against.
//
// The inspector reads pg_catalog/information_schema once per session and
// produces a pgseed.Schema: every base table in the target schema becomes
// an entity kind (tag derived from the table name, overridable via the
// table map), except association tables, which surface as many-to-many
// fields on their owning kind instead.
//
// # Kind Naming
//
// Fixture tags are "<app>.<name>" and map to "<app>_<name>" tables. The
// inspector derives tags back from table names by splitting at the first
// underscore; ambiguous names (an app label containing underscores, or a
// table with no underscore at all) are exactly what the table map exists
// to pin down.
//
// # Association Tables
//
// A table is treated as an association table when its column set is
// nothing but two single-column foreign keys plus an optional surrogate
// primary key, and a unique constraint (or the primary key itself) spans
// both foreign keys. A table map entry naming the table forces the
// entity-kind interpretation instead.
//
// # Thread Safety
//
// Inspector is safe for concurrent use as long as its Querier is.
package schema

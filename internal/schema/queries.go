package schema

// SQL catalog queries for schema introspection.
// Centralizing queries here improves maintainability and follows the project
// philosophy of keeping SQL separate from Go code.

const (
	// queryColumns retrieves every column of every base table in the target
	// schema, in ordinal order.
	// Parameter $1: schema name
	queryColumns = `
		SELECT c.table_name,
		       c.column_name,
		       c.is_nullable = 'YES',
		       c.column_default IS NOT NULL,
		       c.data_type
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema
		 AND t.table_name = c.table_name
		WHERE c.table_schema = $1
		  AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position
	`

	// queryPrimaryKeys retrieves primary-key columns per table together with
	// the serial/identity sequence backing each column (empty when keys are
	// not auto-assigned). Multi-column primary keys yield one row per column.
	// Parameter $1: schema name
	queryPrimaryKeys = `
		SELECT tc.table_name,
		       kcu.column_name,
		       COALESCE(pg_get_serial_sequence(
		           quote_ident(tc.table_schema) || '.' || quote_ident(tc.table_name),
		           kcu.column_name), '')
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = $1
		  AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY tc.table_name, kcu.ordinal_position
	`

	// queryForeignKeys retrieves single-column foreign keys: constrained
	// column, referenced table, constraint name, and whether the constraint
	// is deferrable. Multi-column foreign keys are excluded; they cannot be
	// addressed by a single fixture field.
	// Parameter $1: schema name
	queryForeignKeys = `
		SELECT rel.relname,
		       att.attname,
		       frel.relname,
		       con.conname,
		       con.condeferrable
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
		JOIN pg_catalog.pg_namespace ns ON ns.oid = rel.relnamespace
		JOIN pg_catalog.pg_class frel ON frel.oid = con.confrelid
		JOIN pg_catalog.pg_attribute att
		  ON att.attrelid = con.conrelid
		 AND att.attnum = con.conkey[1]
		WHERE con.contype = 'f'
		  AND ns.nspname = $1
		  AND cardinality(con.conkey) = 1
		ORDER BY rel.relname, con.conname
	`

	// queryUniqueConstraints retrieves unique constraints with their columns
	// in definition order. Constraint creation order (con.oid) drives which
	// constraint becomes a kind's unique key spec.
	// Parameter $1: schema name
	queryUniqueConstraints = `
		SELECT rel.relname,
		       con.conname,
		       att.attname
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
		JOIN pg_catalog.pg_namespace ns ON ns.oid = rel.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS ord(attnum, n)
		JOIN pg_catalog.pg_attribute att
		  ON att.attrelid = con.conrelid
		 AND att.attnum = ord.attnum
		WHERE con.contype = 'u'
		  AND ns.nspname = $1
		ORDER BY rel.relname, con.oid, ord.n
	`
)

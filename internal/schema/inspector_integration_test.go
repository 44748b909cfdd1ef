package schema_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgseed/pgseed/internal/logging"
	"github.com/pgseed/pgseed/internal/schema"
	testhelpers "github.com/pgseed/pgseed/internal/testing"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

const blogDDL = `
CREATE TABLE blog_author (
    id serial PRIMARY KEY,
    email text NOT NULL UNIQUE,
    name text
);
CREATE TABLE blog_tag (
    id serial PRIMARY KEY,
    name text NOT NULL UNIQUE
);
CREATE TABLE blog_entry (
    id serial PRIMARY KEY,
    author_id integer NOT NULL REFERENCES blog_author (id) DEFERRABLE INITIALLY IMMEDIATE,
    slug text NOT NULL,
    title text NOT NULL,
    UNIQUE (author_id, slug)
);
CREATE TABLE blog_entry_tags (
    id serial PRIMARY KEY,
    entry_id integer NOT NULL REFERENCES blog_entry (id),
    tag_id integer NOT NULL REFERENCES blog_tag (id),
    UNIQUE (entry_id, tag_id)
);
`

func TestInspector_Inspect_Integration(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()

	testDB := "pgseed_test_inspector"
	cleanup := testhelpers.CreateTestDB(t, connString, testDB)
	defer cleanup()

	pool := testhelpers.GetTestPool(t, connString, testDB)
	_, err := pool.Exec(ctx, blogDDL)
	require.NoError(t, err, "failed to create test tables")

	insp := schema.NewInspector(pool, logging.NewNullLogger())
	s, err := insp.Inspect(ctx, "", nil)
	require.NoError(t, err)

	require.Equal(t, 3, s.Len(), "join table must not surface as a kind")

	author, ok := s.Kind("blog.author")
	require.True(t, ok)
	assert.Equal(t, "blog_author", author.Table)
	assert.Equal(t, "id", author.PrimaryKey)
	assert.Equal(t, "public.blog_author_id_seq", author.Sequence)
	assert.Equal(t, []string{"email"}, author.Unique.Columns)

	id, ok := author.Column("id")
	require.True(t, ok)
	assert.True(t, id.HasDefault, "serial column carries a default")
	name, ok := author.Column("name")
	require.True(t, ok)
	assert.True(t, name.Nullable)
	email, ok := author.Column("email")
	require.True(t, ok)
	assert.False(t, email.Nullable)

	entry, ok := s.Kind("blog.entry")
	require.True(t, ok)
	fk, ok := entry.ForeignKeys["author_id"]
	require.True(t, ok)
	assert.Equal(t, pgseed.Kind("blog.author"), fk.Target)
	assert.True(t, fk.Deferrable)
	assert.Equal(t, []string{"author_id", "slug"}, entry.Unique.Columns,
		"composite unique preferred over none")

	assoc, ok := entry.Associations["tags"]
	require.True(t, ok, "entry/tag join table should surface as an association")
	assert.Equal(t, "blog_entry_tags", assoc.JoinTable)
	assert.Equal(t, "entry_id", assoc.OwnerColumn)
	assert.Equal(t, "tag_id", assoc.TargetColumn)
	assert.Equal(t, pgseed.Kind("blog.tag"), assoc.Target)

	_, ok = s.Kind("blog.entry_tags")
	assert.False(t, ok)
}

func TestInspector_Inspect_TableMapForcesJoinTableKind(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()

	testDB := "pgseed_test_inspector_map"
	cleanup := testhelpers.CreateTestDB(t, connString, testDB)
	defer cleanup()

	pool := testhelpers.GetTestPool(t, connString, testDB)
	_, err := pool.Exec(ctx, blogDDL)
	require.NoError(t, err)

	insp := schema.NewInspector(pool, logging.NewNullLogger())
	s, err := insp.Inspect(ctx, "public", map[string]string{"blog.entry_tag": "blog_entry_tags"})
	require.NoError(t, err)

	require.Equal(t, 4, s.Len())

	link, ok := s.Kind("blog.entry_tag")
	require.True(t, ok)
	assert.Equal(t, "blog_entry_tags", link.Table)
	assert.Equal(t, []string{"entry_id", "tag_id"}, link.Unique.Columns)

	entry, ok := s.Kind("blog.entry")
	require.True(t, ok)
	assert.Empty(t, entry.Associations)
}

func TestInspector_Inspect_EmptySchema(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	ctx := context.Background()

	testDB := "pgseed_test_inspector_empty"
	cleanup := testhelpers.CreateTestDB(t, connString, testDB)
	defer cleanup()

	pool := testhelpers.GetTestPool(t, connString, testDB)

	insp := schema.NewInspector(pool, logging.NewNullLogger())
	s, err := insp.Inspect(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

package fixgen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/internal/fixture"
)

func TestGenerator_ExampleFile_Deterministic(t *testing.T) {
	first, err := New().ExampleFile()
	require.NoError(t, err)
	second, err := New().ExampleFile()
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same seed must produce identical files")

	seeded, err := NewSeeded(DefaultSeed).ExampleFile()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, seeded), "New must be NewSeeded(DefaultSeed)")
}

func TestGenerator_CorpusJSON_Deterministic(t *testing.T) {
	first, err := NewSeeded(99).CorpusJSON(10, 4, 25)
	require.NoError(t, err)
	second, err := NewSeeded(99).CorpusJSON(10, 4, 25)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
}

func TestGenerator_ExampleRecords_Shapes(t *testing.T) {
	records := New().ExampleRecords()
	require.Len(t, records, 6)

	byModel := map[string][]Record{}
	for _, r := range records {
		byModel[r.Model] = append(byModel[r.Model], r)
	}
	require.Len(t, byModel["blog.author"], 2)
	require.Len(t, byModel["blog.tag"], 2)
	require.Len(t, byModel["blog.entry"], 2)

	// Tag records trail the entries that reference them, so the example
	// shows that reference order across a file does not matter.
	assert.Equal(t, "blog.tag", records[4].Model)
	assert.Equal(t, "blog.tag", records[5].Model)

	first, second := byModel["blog.entry"][0], byModel["blog.entry"][1]
	assert.Equal(t, 1, first.PK)
	assert.Equal(t, 1, first.Fields["author"], "first entry references its author by pk")
	assert.Equal(t, []any{1, 2}, first.Fields["tags"])

	assert.Nil(t, second.PK, "second entry must demonstrate the null pk shape")
	naturalKey, ok := second.Fields["author"].([]any)
	require.True(t, ok, "second entry must reference its author by natural key")
	require.Len(t, naturalKey, 1)
	assert.Equal(t, byModel["blog.author"][1].Fields["email"], naturalKey[0])

	tags, ok := second.Fields["tags"].([]any)
	require.True(t, ok)
	require.Len(t, tags, 2)
	_, nested := tags[0].([]any)
	assert.True(t, nested, "mixed tag list must include a natural-key element")

	seen := map[any]bool{}
	for _, author := range byModel["blog.author"] {
		email := author.Fields["email"]
		assert.False(t, seen[email], "author emails must be unique")
		seen[email] = true
	}
}

func TestGenerator_ExampleFile_PassesValidation(t *testing.T) {
	data, err := New().ExampleFile()
	require.NoError(t, err)

	mfs := filesystem.NewMemoryFileSystem("/project")
	mfs.AddFile("/project/fixtures/example.json", string(data))

	count, err := fixture.NewValidatorWithFS(mfs).ValidateFile("/project/fixtures/example.json")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestGenerator_Corpus_ReferenceIntegrity(t *testing.T) {
	records := NewSeeded(7).Corpus(5, 3, 12)
	require.Len(t, records, 20)

	emails := map[any]bool{}
	var entries []Record
	for _, r := range records {
		switch r.Model {
		case "blog.author":
			emails[r.Fields["email"]] = true
		case "blog.entry":
			entries = append(entries, r)
		}
	}
	require.Len(t, emails, 5, "corpus author emails must be unique")
	require.Len(t, entries, 12)

	withPK := 0
	for _, entry := range entries {
		switch ref := entry.Fields["author"].(type) {
		case int:
			assert.GreaterOrEqual(t, ref, 1)
			assert.LessOrEqual(t, ref, 5)
		case []any:
			require.Len(t, ref, 1)
			assert.True(t, emails[ref[0]], "natural-key reference %v must match a generated author", ref[0])
		default:
			t.Fatalf("unexpected author reference type %T", entry.Fields["author"])
		}

		tags, ok := entry.Fields["tags"].([]any)
		require.True(t, ok)
		assert.NotEmpty(t, tags)

		if entry.PK != nil {
			withPK++
		}
	}
	assert.Equal(t, 6, withPK, "every other entry carries an explicit pk")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Go Programming Language", "the-go-programming-language"},
		{"Hitchhiker's Guide", "hitchhiker-s-guide"},
		{"  Leading and trailing!  ", "leading-and-trailing"},
		{"123 Numbers", "123-numbers"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), "slugify(%q)", tt.in)
	}
}

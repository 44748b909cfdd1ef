// Package fixtures provides shared in-memory fixture trees for locator,
// service, and command tests.
package fixtures

import (
	"fmt"
	"strings"

	"github.com/pgseed/pgseed/internal/files/filesystem"
)

// TreeBuilder provides a fluent API for building in-memory fixture trees
// rooted at "/".
//
// Example usage:
//
//	fs := NewTreeBuilder().
//	    AddFixture("authors", Record("app.author", 1, `"name": "Ada"`)).
//	    AddSeries("events", chunk0, chunk1).
//	    Build()
type TreeBuilder struct {
	files map[string]string
}

// NewTreeBuilder creates an empty tree builder.
func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{files: make(map[string]string)}
}

// AddFile adds an arbitrary file at the specified path.
func (b *TreeBuilder) AddFile(path, content string) *TreeBuilder {
	b.files[path] = content
	return b
}

// AddFixture adds name.json at the tree root, wrapping the given records
// in a JSON array.
func (b *TreeBuilder) AddFixture(name string, records ...string) *TreeBuilder {
	b.files[name+".json"] = envelope(records)
	return b
}

// AddFixtureIn adds name.json under the given directory.
func (b *TreeBuilder) AddFixtureIn(dir, name string, records ...string) *TreeBuilder {
	b.files[fmt.Sprintf("%s/%s.json", dir, name)] = envelope(records)
	return b
}

// AddSeries adds base_0.json through base_{n-1}.json, one record per
// chunk file.
func (b *TreeBuilder) AddSeries(base string, records ...string) *TreeBuilder {
	for i, rec := range records {
		b.files[fmt.Sprintf("%s_%d.json", base, i)] = envelope([]string{rec})
	}
	return b
}

// Build generates the filesystem.FileSystemProvider from the accumulated
// files.
func (b *TreeBuilder) Build() filesystem.FileSystemProvider {
	fs := filesystem.NewMemoryFileSystem("/")
	for path, content := range b.files {
		fs.AddFile(path, content)
	}
	return fs
}

// Record renders one fixture record with the given kind tag, pk, and
// fields-object members.
func Record(model string, pk any, fields string) string {
	pkJSON := "null"
	switch v := pk.(type) {
	case nil:
	case string:
		pkJSON = fmt.Sprintf("%q", v)
	default:
		pkJSON = fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf(`{"model": %q, "pk": %s, "fields": {%s}}`, model, pkJSON, fields)
}

func envelope(records []string) string {
	return "[" + strings.Join(records, ", ") + "]"
}

// ============================================================================
// Pre-built trees
// ============================================================================

// StandardProject creates a representative fixture tree with:
//   - authors.json and books.json at the root (pk, natural-key, and raw-key
//     reference shapes)
//   - comments.json nested under forum/
//   - a decoy authors.json inside uploads/, which default exclusion skips
func StandardProject() filesystem.FileSystemProvider {
	return NewTreeBuilder().
		AddFixture("authors",
			Record("app.author", 1, `"email": "ada@example.com", "name": "Ada"`),
			Record("app.author", 2, `"email": "bob@example.com", "name": "Bob"`)).
		AddFixture("books",
			Record("app.book", nil, `"author": ["ada@example.com"], "title": "Intro"`),
			Record("app.book", nil, `"author": 2, "title": "Sequel"`)).
		AddFixtureIn("forum", "comments",
			Record("forum.comment", 1, `"body": "first"`)).
		AddFile("uploads/authors.json", `[{"model": "app.author", "pk": 99, "fields": {"email": "decoy@example.com", "name": "Decoy"}}]`).
		Build()
}

// SeriesProject creates a chunked series events_0 through events_2, plus a
// straggler events_4.json beyond the gap that series resolution must not
// pick up.
func SeriesProject() filesystem.FileSystemProvider {
	return NewTreeBuilder().
		AddSeries("events",
			Record("app.event", 1, `"kind": "signup"`),
			Record("app.event", 2, `"kind": "login"`),
			Record("app.event", 3, `"kind": "logout"`)).
		AddFile("events_4.json", envelope([]string{Record("app.event", 5, `"kind": "orphan"`)})).
		Build()
}

// EmptyProject creates a root with no fixture files.
func EmptyProject() filesystem.FileSystemProvider {
	return NewTreeBuilder().Build()
}

// ShadowedProject creates the same stem at the root and nested one level
// down; the index keeps the first file walked (the shallower one here).
func ShadowedProject() filesystem.FileSystemProvider {
	return NewTreeBuilder().
		AddFixture("authors",
			Record("app.author", 1, `"email": "root@example.com", "name": "Root"`)).
		AddFixtureIn("nested", "authors",
			Record("app.author", 2, `"email": "nested@example.com", "name": "Nested"`)).
		Build()
}

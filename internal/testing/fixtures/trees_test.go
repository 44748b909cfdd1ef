package fixtures

import (
	"encoding/json"
	"testing"

	"github.com/pgseed/pgseed/internal/files/filesystem"
)

func assertFileExists(t *testing.T, fs filesystem.FileSystemProvider, path string) {
	t.Helper()
	content, err := fs.ReadFile(path)
	if err != nil {
		t.Errorf("Expected file %q not found: %v", path, err)
		return
	}
	if len(content) == 0 {
		t.Errorf("File %q has empty content", path)
	}
}

func assertValidFixture(t *testing.T, fs filesystem.FileSystemProvider, path string, wantRecords int) {
	t.Helper()
	content, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected file %q not found: %v", path, err)
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(content, &records); err != nil {
		t.Fatalf("File %q is not a valid fixture array: %v", path, err)
	}
	if len(records) != wantRecords {
		t.Errorf("File %q has %d records, want %d", path, len(records), wantRecords)
	}
	for i, rec := range records {
		for _, key := range []string{"model", "pk", "fields"} {
			if _, ok := rec[key]; !ok {
				t.Errorf("File %q record %d missing %q", path, i, key)
			}
		}
	}
}

func TestStandardProject(t *testing.T) {
	fs := StandardProject()

	assertValidFixture(t, fs, "authors.json", 2)
	assertValidFixture(t, fs, "books.json", 2)
	assertValidFixture(t, fs, "forum/comments.json", 1)
	assertFileExists(t, fs, "uploads/authors.json")
}

func TestSeriesProject(t *testing.T) {
	fs := SeriesProject()

	assertValidFixture(t, fs, "events_0.json", 1)
	assertValidFixture(t, fs, "events_1.json", 1)
	assertValidFixture(t, fs, "events_2.json", 1)
	if _, err := fs.ReadFile("events_3.json"); err == nil {
		t.Error("events_3.json should not exist (it is the gap)")
	}
	assertValidFixture(t, fs, "events_4.json", 1)
}

func TestShadowedProject(t *testing.T) {
	fs := ShadowedProject()

	assertValidFixture(t, fs, "authors.json", 1)
	assertValidFixture(t, fs, "nested/authors.json", 1)
}

func TestTreeBuilder_FluentAPI(t *testing.T) {
	fs := NewTreeBuilder().
		AddFixture("users", Record("app.user", 1, `"name": "x"`)).
		AddFixtureIn("sub", "groups", Record("app.group", nil, `"slug": "g"`)).
		AddSeries("logs", Record("app.log", 1, `"line": "a"`), Record("app.log", 2, `"line": "b"`)).
		AddFile("notes.txt", "not a fixture").
		Build()

	assertValidFixture(t, fs, "users.json", 1)
	assertValidFixture(t, fs, "sub/groups.json", 1)
	assertValidFixture(t, fs, "logs_0.json", 1)
	assertValidFixture(t, fs, "logs_1.json", 1)
	assertFileExists(t, fs, "notes.txt")
}

func TestRecord_PKShapes(t *testing.T) {
	tests := []struct {
		name string
		pk   any
		want string
	}{
		{"integer", 7, `{"model": "a.b", "pk": 7, "fields": {"x": 1}}`},
		{"null", nil, `{"model": "a.b", "pk": null, "fields": {"x": 1}}`},
		{"string", "k1", `{"model": "a.b", "pk": "k1", "fields": {"x": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Record("a.b", tt.pk, `"x": 1`)
			if got != tt.want {
				t.Errorf("Record = %s, want %s", got, tt.want)
			}
		})
	}
}

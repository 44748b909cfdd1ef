// Package fixgen generates fixture files filled with deterministic fake
// data. It backs the example fixture written by `pgseed init` and the
// larger corpora used by tests and benchmarks.
package fixgen

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultSeed fixes the fake-data stream so scaffolded projects come out
// identical on every run.
const DefaultSeed = 1847

// Record mirrors the on-disk fixture record envelope.
type Record struct {
	Model  string         `json:"model"`
	PK     any            `json:"pk"`
	Fields map[string]any `json:"fields"`
}

// Generator hands out fake fixture content. Output is a pure function of
// the seed, so generated files can be compared byte for byte.
type Generator struct {
	faker *gofakeit.Faker
}

// New returns a Generator seeded with DefaultSeed.
func New() *Generator {
	return NewSeeded(DefaultSeed)
}

// NewSeeded returns a Generator whose output is fully determined by seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// ExampleRecords builds the records behind the scaffolded example fixture:
// two authors and two tags with explicit pks, plus two entries covering
// integer references, a natural-key reference on a record with "pk": null,
// and many-to-many tag lists in both shapes. The tag records come last so
// the entries' tag references demonstrate that file order does not matter.
func (g *Generator) ExampleRecords() []Record {
	emails := []string{g.faker.Email()}
	emails = append(emails, g.distinct(g.faker.Email, emails))

	records := make([]Record, 0, 6)
	for i, email := range emails {
		records = append(records, Record{
			Model: "blog.author",
			PK:    i + 1,
			Fields: map[string]any{
				"email": email,
				"name":  g.faker.Name(),
			},
		})
	}

	tagNames := []string{strings.ToLower(g.faker.Word())}
	tagNames = append(tagNames, g.distinct(func() string { return strings.ToLower(g.faker.Word()) }, tagNames))

	titles := []string{g.faker.BookTitle()}
	titles = append(titles, g.distinct(g.faker.BookTitle, titles))

	records = append(records,
		Record{
			Model: "blog.entry",
			PK:    1,
			Fields: map[string]any{
				"author":       1,
				"title":        titles[0],
				"slug":         slugify(titles[0]),
				"published_on": g.publicationDate(),
				"tags":         []any{1, 2},
			},
		},
		Record{
			Model: "blog.entry",
			PK:    nil,
			Fields: map[string]any{
				"author":       []any{emails[1]},
				"title":        titles[1],
				"slug":         slugify(titles[1]),
				"published_on": g.publicationDate(),
				"tags":         []any{[]any{tagNames[0]}, 2},
			},
		},
	)

	for i, name := range tagNames {
		records = append(records, Record{
			Model:  "blog.tag",
			PK:     i + 1,
			Fields: map[string]any{"name": name},
		})
	}

	return records
}

// ExampleFile renders ExampleRecords as the indented JSON document that
// `pgseed init` drops into the fixtures directory.
func (g *Generator) ExampleFile() ([]byte, error) {
	data, err := json.MarshalIndent(g.ExampleRecords(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode example fixture: %w", err)
	}
	return append(data, '\n'), nil
}

// Corpus builds a single-file author/tag/entry corpus of the given sizes.
// Entries cycle through the authors, alternating integer and natural-key
// references, and half of them omit an explicit pk. Benchmarks use it to
// exercise the decoder on realistic reference mixes.
func (g *Generator) Corpus(authors, tags, entries int) []Record {
	records := make([]Record, 0, authors+tags+entries)

	emails := make([]string, authors)
	for i := range emails {
		emails[i] = fmt.Sprintf("%s%d@example.com", strings.ToLower(g.faker.Username()), i+1)
		records = append(records, Record{
			Model: "blog.author",
			PK:    i + 1,
			Fields: map[string]any{
				"email": emails[i],
				"name":  g.faker.Name(),
			},
		})
	}

	for i := 0; i < tags; i++ {
		records = append(records, Record{
			Model:  "blog.tag",
			PK:     i + 1,
			Fields: map[string]any{"name": fmt.Sprintf("%s-%d", strings.ToLower(g.faker.Word()), i+1)},
		})
	}

	for i := 0; i < entries; i++ {
		title := g.faker.BookTitle()
		fields := map[string]any{
			"title":        title,
			"slug":         fmt.Sprintf("%s-%d", slugify(title), i+1),
			"published_on": g.publicationDate(),
		}
		if authors > 0 {
			if i%3 == 0 {
				fields["author"] = i%authors + 1
			} else {
				fields["author"] = []any{emails[i%authors]}
			}
		}
		if tags > 0 {
			refs := []any{i%tags + 1}
			if tags > 1 {
				refs = append(refs, (i+1)%tags+1)
			}
			fields["tags"] = refs
		}

		var pk any
		if i%2 == 0 {
			pk = i + 1
		}
		records = append(records, Record{Model: "blog.entry", PK: pk, Fields: fields})
	}

	return records
}

// CorpusJSON renders Corpus as a fixture file.
func (g *Generator) CorpusJSON(authors, tags, entries int) ([]byte, error) {
	data, err := json.MarshalIndent(g.Corpus(authors, tags, entries), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode fixture corpus: %w", err)
	}
	return append(data, '\n'), nil
}

// distinct re-rolls gen until it produces a value not already taken.
// Uniqueness has to be structural: natural keys in a fixture file must not
// collide, and a lucky seed is not a guarantee.
func (g *Generator) distinct(gen func() string, taken []string) string {
	for {
		v := gen()
		if !slices.Contains(taken, v) {
			return v
		}
	}
}

func (g *Generator) publicationDate() string {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	return g.faker.DateRange(start, end).Format("2006-01-02")
}

func slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}

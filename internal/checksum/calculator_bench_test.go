package checksum

import (
	"fmt"
	"strings"
	"testing"
)

// fixtureChunk builds an indented JSON fixture with n records.
func fixtureChunk(n int) []byte {
	var sb strings.Builder
	sb.WriteString("[\n")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(",\n")
		}
		fmt.Fprintf(&sb, "  {\n    \"model\": \"blog.entry\",\n    \"pk\": %d,\n    \"fields\": {\n      \"slug\": \"entry-%d\",\n      \"title\": \"Entry %d\",\n      \"author_id\": %d\n    }\n  }", i+1, i+1, i+1, i%10+1)
	}
	sb.WriteString("\n]\n")
	return []byte(sb.String())
}

var benchRecordCounts = []int{100, 5000}

func BenchmarkCalculateRaw(b *testing.B) {
	calc := New()
	for _, n := range benchRecordCounts {
		content := fixtureChunk(n)
		b.Run(fmt.Sprintf("%drecords", n), func(b *testing.B) {
			b.SetBytes(int64(len(content)))
			for b.Loop() {
				calc.CalculateRaw(content)
			}
		})
	}
}

func BenchmarkCalculateNormalized(b *testing.B) {
	calc := New()
	for _, n := range benchRecordCounts {
		content := fixtureChunk(n)
		b.Run(fmt.Sprintf("%drecords", n), func(b *testing.B) {
			b.SetBytes(int64(len(content)))
			for b.Loop() {
				calc.CalculateNormalized(content)
			}
		})
	}
}

func BenchmarkNormalize(b *testing.B) {
	calc := New()
	content := fixtureChunk(100)
	b.SetBytes(int64(len(content)))
	for b.Loop() {
		calc.normalize(content)
	}
}

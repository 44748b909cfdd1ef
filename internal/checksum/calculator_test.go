package checksum

import (
	"testing"
)

func TestCalculateRawKnownVectors(t *testing.T) {
	calc := New()

	tests := map[string]struct {
		content []byte
		want    string
	}{
		"nil input": {
			content: nil,
			want:    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		"empty input": {
			content: []byte{},
			want:    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		"abc": {
			content: []byte("abc"),
			want:    "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := calc.CalculateRaw(tt.content); got != tt.want {
				t.Errorf("CalculateRaw() = %s, want %s", got, tt.want)
			}
		})
	}
}

// Pairs of inputs and whether their normalized hashes must collide.
// Formatting differences collapse; anything the decoder sees as different
// content, including key order, must keep distinct hashes.
func TestCalculateNormalizedEquivalence(t *testing.T) {
	calc := New()

	tests := map[string]struct {
		a, b     string
		wantSame bool
	}{
		"indentation ignored": {
			a:        `[{"model":"blog.author","pk":1,"fields":{"name":"Ada"}}]`,
			b:        "[\n  {\n    \"model\": \"blog.author\",\n    \"pk\": 1,\n    \"fields\": {\n      \"name\": \"Ada\"\n    }\n  }\n]",
			wantSame: true,
		},
		"token spacing ignored": {
			a:        `[{"model":"blog.author","pk":1,"fields":{"name":"Ada"}}]`,
			b:        "[ { \"model\" : \"blog.author\" , \"pk\" : 1 , \"fields\" : { \"name\" : \"Ada\" } } ]",
			wantSame: true,
		},
		"crlf and tabs ignored": {
			a:        `[{"model":"blog.author","pk":1,"fields":{"name":"Ada"}}]`,
			b:        "\t[{\"model\":\"blog.author\",\r\n\"pk\":1,\"fields\":{\"name\":\"Ada\"}}]\n",
			wantSame: true,
		},
		"pk change detected": {
			a:        `[{"model":"blog.author","pk":1,"fields":{"name":"Ada"}}]`,
			b:        `[{"model":"blog.author","pk":2,"fields":{"name":"Ada"}}]`,
			wantSame: false,
		},
		"key order is content": {
			a:        `[{"model":"blog.author","pk":1,"fields":{}}]`,
			b:        `[{"pk":1,"model":"blog.author","fields":{}}]`,
			wantSame: false,
		},
		"whitespace inside strings is content": {
			a:        `[{"model":"blog.author","pk":1,"fields":{"name":"Ada  Lovelace"}}]`,
			b:        `[{"model":"blog.author","pk":1,"fields":{"name":"Ada Lovelace"}}]`,
			wantSame: false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			hashA := calc.CalculateNormalized([]byte(tt.a))
			hashB := calc.CalculateNormalized([]byte(tt.b))

			if same := hashA == hashB; same != tt.wantSame {
				t.Errorf("hashes equal = %v, want %v\n a: %s\n b: %s", same, tt.wantSame, tt.a, tt.b)
			}
		})
	}
}

func TestCalculateNormalizedInvalidJSONFallsBackToRaw(t *testing.T) {
	calc := New()
	content := []byte("[{\"model\": \"blog.author\",")

	if calc.CalculateNormalized(content) != calc.CalculateRaw(content) {
		t.Error("invalid JSON must hash the bytes as-is")
	}
}

func TestRawAndNormalizedDifferForIndentedInput(t *testing.T) {
	calc := New()
	content := []byte("[\n  {\n    \"model\": \"blog.author\",\n    \"pk\": 1,\n    \"fields\": {}\n  }\n]")

	if calc.CalculateRaw(content) == calc.CalculateNormalized(content) {
		t.Error("normalization had no effect on indented input")
	}
}

func TestNormalizeCompaction(t *testing.T) {
	calc := New()

	tests := map[string]struct {
		input string
		want  string
	}{
		"already compact":            {input: `[{"pk":1}]`, want: `[{"pk":1}]`},
		"indentation stripped":       {input: "[\n  {\n    \"pk\": 1\n  }\n]", want: `[{"pk":1}]`},
		"spaces inside strings kept": {input: `[ {"name": "Ada  Lovelace"} ]`, want: `[{"name":"Ada  Lovelace"}]`},
		"invalid json unchanged":     {input: "not json {", want: "not json {"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := string(calc.normalize([]byte(tt.input))); got != tt.want {
				t.Errorf("normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

package params

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ParseTableMapFile parses the contents of a table-map file into kind tag
// to table name entries. One app.kind=table entry per line; blank lines and
// #-comments are skipped, and table names may be single or double quoted.
func ParseTableMapFile(content []byte) (map[string]string, error) {
	entries := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '=' (expected app.kind=table)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if err := validateEntry(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		entries[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read table map: %w", err)
	}
	return entries, nil
}

// unquote strips one matching pair of single or double quotes, if present.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
		return s[1 : len(s)-1]
	}
	return s
}

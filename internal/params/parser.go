package params

import (
	"fmt"
	"strings"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// ParseTableMap converts a slice of "app.kind=table" strings into a map.
// Keys must be valid kind tags; values must be non-empty table names.
//
// Example:
//
//	tableMap, err := ParseTableMap([]string{"shop.product=store_products"})
//	// Returns: map[string]string{"shop.product": "store_products"}
func ParseTableMap(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("table map entry %q is not in app.kind=table format (example: --table-map shop.product=store_products)", pair)
		}

		if err := validateEntry(key, value); err != nil {
			return nil, fmt.Errorf("table map entry %q: %w", pair, err)
		}

		result[key] = value
	}

	return result, nil
}

// Merge overlays src entries onto dst, src winning on conflicts.
// Both maps may be nil; the merged map is always non-nil.
func Merge(dst, src map[string]string) map[string]string {
	merged := make(map[string]string, len(dst)+len(src))
	for k, v := range dst {
		merged[k] = v
	}
	for k, v := range src {
		merged[k] = v
	}
	return merged
}

func validateEntry(key, value string) error {
	if key == "" {
		return fmt.Errorf("empty kind tag")
	}
	if _, err := pgseed.ParseKind(key); err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("empty table name for kind %q", key)
	}
	return nil
}

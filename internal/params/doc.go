// Package params parses table-map overrides for the loader.
//
// A table map overrides the conventional kind-tag-to-table naming
// ("shop.product" -> "shop_product") for individual kinds. Entries come from
// two sources:
//   - repeated --table-map flags in "app.kind=table" form
//   - --table-map-file files in KEY=VALUE format (one entry per line,
//     # comments and blank lines ignored)
//
// CLI flag entries take precedence over file entries when both name the
// same kind.
package params

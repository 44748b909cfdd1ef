// Package checksum computes fixture content hashes.
//
// Every fixture carries two SHA-256 checksums:
//
//   - raw: the exact bytes, so any edit is visible
//   - normalized: the bytes after JSON compaction, so reformatting a
//     fixture file does not register as a content change
//
// Compaction preserves key order and string contents, so two fixtures
// normalize equal exactly when their JSON token streams match. Content
// that is not valid JSON is hashed as-is.
//
// Calculators are zero-size values and safe for concurrent use.
package checksum

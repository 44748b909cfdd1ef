// Package dump exports database rows as fixture files in the exact shape
// the loader consumes: fixed key order, fields in column order, records in
// primary-key order, chunked into a numbered file series.
package dump

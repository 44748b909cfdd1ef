// Package fixture provides fixture file discovery and record deserialization.
//
// The fixture package is responsible for:
//   - Resolving fixture name tokens (bare names and chunk-series patterns)
//     to absolute file paths across a set of search roots
//   - Streaming fixture files into entity records, splitting each record's
//     fields into resolved values, deferred references, and many-to-many
//     associations
//
// Discovery is filesystem-agnostic through the filesystem.FileSystemProvider
// interface, enabling both production use with the OS filesystem and testing
// with in-memory filesystems.
package fixture

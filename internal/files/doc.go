// Package files groups filesystem-related functionality.
//
// The filesystem sub-package provides the abstraction the fixture
// locator, config loading, and scaffolding are built on, with OS-backed,
// in-memory, and embedded implementations:
//
//	import "github.com/pgseed/pgseed/internal/files/filesystem"
//
//	fs := filesystem.NewOSFileSystem()
//	data, err := fs.ReadFile("fixtures/users_0.json")
package files

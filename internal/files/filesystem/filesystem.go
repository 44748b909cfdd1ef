package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo aliases fs.FileInfo. Implementations hand back whatever
// metadata their backing store produced.
type FileInfo = fs.FileInfo

// SkipDir is returned by a Walk callback to skip the current directory's
// subtree. Alias of fs.SkipDir so callers can use either spelling.
var SkipDir = fs.SkipDir

// File is a single file surfaced by a Walk.
type File interface {
	// Path returns the absolute path to the file.
	Path() string

	// RelativePath returns the path relative to the walked root.
	RelativePath() string

	// Info returns the file's metadata.
	Info() FileInfo

	// ReadContent returns the file's full contents.
	ReadContent() ([]byte, error)
}

// Directory is a walkable tree rooted at a single path.
type Directory interface {
	// Path returns the absolute path of the root.
	Path() string

	// Walk visits every file and directory under the root. Traversal
	// errors arrive through the callback's second argument. A non-nil
	// return stops the walk; SkipDir on a directory prunes its subtree
	// instead.
	Walk(fn func(File, error) error) error
}

// FileSystemProvider opens directories and files from one backing store,
// whether the host filesystem, an in-memory tree, or an embedded one.
type FileSystemProvider interface {
	// Open opens the directory at path for walking.
	Open(path string) (Directory, error)

	// OpenReader opens a file for streaming reads. The caller must close
	// the returned reader.
	OpenReader(path string) (io.ReadCloser, error)

	// ReadFile reads the whole file at path.
	ReadFile(path string) ([]byte, error)

	// Stat returns metadata for path.
	Stat(path string) (FileInfo, error)
}

package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// osFile implements File for entries discovered on the host filesystem.
// The info snapshot is taken at walk time.
type osFile struct {
	absPath string
	relPath string
	info    fs.FileInfo
}

func (f *osFile) Path() string         { return f.absPath }
func (f *osFile) RelativePath() string { return f.relPath }
func (f *osFile) Info() FileInfo       { return f.info }

func (f *osFile) ReadContent() ([]byte, error) {
	return os.ReadFile(f.absPath)
}

// osDirectory implements Directory over a host directory tree.
type osDirectory struct {
	absPath string
}

func (d *osDirectory) Path() string { return d.absPath }

// Walk traverses the tree in lexical order. SkipDir from the callback
// propagates to filepath.WalkDir, which prunes the subtree.
func (d *osDirectory) Walk(fn func(File, error) error) error {
	return filepath.WalkDir(d.absPath, func(p string, entry fs.DirEntry, walkErr error) error {
		return d.visit(fn, p, entry, walkErr)
	})
}

// visit adapts one WalkDir callback into the File interface, converting
// a callback panic into an error so it cannot take down the walk.
func (d *osDirectory) visit(fn func(File, error) error, p string, entry fs.DirEntry, walkErr error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("walk callback panicked at %s: %v", p, r)
		}
	}()

	if walkErr != nil {
		return fn(nil, walkErr)
	}

	info, infoErr := entry.Info()
	if infoErr != nil {
		return fn(nil, fmt.Errorf("failed to get file info for %s: %w", p, infoErr))
	}

	rel, relErr := filepath.Rel(d.absPath, p)
	if relErr != nil {
		return fn(nil, fmt.Errorf("failed to get relative path: %w", relErr))
	}

	return fn(&osFile{absPath: p, relPath: rel, info: info}, nil)
}

// OSFileSystem is the production FileSystemProvider, reading the host
// filesystem directly.
type OSFileSystem struct{}

func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (p *OSFileSystem) Open(dirPath string) (Directory, error) {
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	return &osDirectory{absPath: absPath}, nil
}

func (p *OSFileSystem) OpenReader(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (p *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (p *OSFileSystem) Stat(path string) (FileInfo, error) {
	return os.Stat(path)
}

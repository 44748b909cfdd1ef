package filesystem

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// embedFile adapts a single embed.FS entry to File.
type embedFile struct {
	embedFS *embed.FS
	absPath string // path within the embed.FS, always forward slashes
	relPath string
	info    fs.FileInfo
}

func (f *embedFile) Path() string         { return f.absPath }
func (f *embedFile) RelativePath() string { return f.relPath }
func (f *embedFile) Info() FileInfo       { return f.info }

func (f *embedFile) ReadContent() ([]byte, error) {
	return f.embedFS.ReadFile(f.absPath)
}

// embedDirectory walks a subtree of an embed.FS.
type embedDirectory struct {
	embedFS *embed.FS
	absPath string
}

func (d *embedDirectory) Path() string { return d.absPath }

// Walk reports relative paths against the opened directory, matching
// the OS and memory providers. embed.FS paths are slash-separated on
// every host, so the relative path is a plain prefix strip.
func (d *embedDirectory) Walk(fn func(File, error) error) error {
	return fs.WalkDir(d.embedFS, d.absPath, func(filePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fn(nil, err)
		}

		info, err := entry.Info()
		if err != nil {
			return fn(nil, fmt.Errorf("failed to get file info for %s: %w", filePath, err))
		}

		relPath := "."
		if filePath != d.absPath {
			relPath = strings.TrimPrefix(filePath, d.absPath+"/")
		}

		return fn(&embedFile{
			embedFS: d.embedFS,
			absPath: filePath,
			relPath: relPath,
			info:    info,
		}, nil)
	})
}

// EmbedFileSystem implements FileSystemProvider for embed.FS, serving the
// binary's embedded assets through the same interface the OS and memory
// providers implement.
type EmbedFileSystem struct {
	embedFS embed.FS
	root    string // root within the embed.FS, always forward slashes
}

// NewEmbedFileSystem creates a filesystem provider rooted at a
// subdirectory of the embed.FS.
func NewEmbedFileSystem(embedFS embed.FS, root string) *EmbedFileSystem {
	return &EmbedFileSystem{
		embedFS: embedFS,
		root:    path.Clean(root),
	}
}

// resolve maps a caller path onto the embed.FS, which uses forward
// slashes regardless of host OS.
func (efs *EmbedFileSystem) resolve(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "." || p == "" {
		return efs.root
	}
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Clean(path.Join(efs.root, p))
}

// Open implements FileSystemProvider.Open
func (efs *EmbedFileSystem) Open(openPath string) (Directory, error) {
	absPath := efs.resolve(openPath)

	// ReadDir doubles as the directory-existence check
	if _, err := efs.embedFS.ReadDir(absPath); err != nil {
		return nil, fmt.Errorf("failed to open directory %s: %w", openPath, err)
	}

	return &embedDirectory{
		embedFS: &efs.embedFS,
		absPath: absPath,
	}, nil
}

// OpenReader implements FileSystemProvider.OpenReader
func (efs *EmbedFileSystem) OpenReader(filePath string) (io.ReadCloser, error) {
	f, err := efs.embedFS.Open(efs.resolve(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	return f, nil
}

// ReadFile implements FileSystemProvider.ReadFile
func (efs *EmbedFileSystem) ReadFile(filePath string) ([]byte, error) {
	content, err := efs.embedFS.ReadFile(efs.resolve(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return content, nil
}

// Stat implements FileSystemProvider.Stat
func (efs *EmbedFileSystem) Stat(statPath string) (FileInfo, error) {
	info, err := fs.Stat(efs.embedFS, efs.resolve(statPath))
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %s: %w", statPath, err)
	}
	return info, nil
}

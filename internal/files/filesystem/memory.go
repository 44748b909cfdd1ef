package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// memInfo is the fs.FileInfo for synthetic in-memory entries.
type memInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return i.mode }
func (i memInfo) ModTime() time.Time { return i.modTime }
func (i memInfo) IsDir() bool        { return i.mode.IsDir() }
func (i memInfo) Sys() any           { return nil }

// memEntry is one stored file body plus its stamp.
type memEntry struct {
	content []byte
	modTime time.Time
}

func fileInfoFor(abs string, entry memEntry) memInfo {
	return memInfo{
		name:    path.Base(abs),
		size:    int64(len(entry.content)),
		mode:    0644,
		modTime: entry.modTime,
	}
}

func dirInfoFor(abs string) memInfo {
	return memInfo{name: path.Base(abs), mode: fs.ModeDir | 0755, modTime: time.Now()}
}

// memoryFile implements File for walked in-memory entries.
type memoryFile struct {
	absPath string
	relPath string
	content []byte
	info    FileInfo
}

func (f *memoryFile) Path() string         { return f.absPath }
func (f *memoryFile) RelativePath() string { return f.relPath }
func (f *memoryFile) Info() FileInfo       { return f.info }

func (f *memoryFile) ReadContent() ([]byte, error) {
	return f.content, nil
}

// MemoryFileSystem is a FileSystemProvider backed by a map. Only file
// bodies are stored; a directory exists whenever some stored path lies
// beneath it, so tests never create directories explicitly. Not safe
// for concurrent mutation.
type MemoryFileSystem struct {
	root  string
	files map[string]memEntry
}

// NewMemoryFileSystem returns an empty in-memory tree rooted at root.
// Virtual paths use forward slashes regardless of host platform.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	return &MemoryFileSystem{
		root:  path.Clean(filepath.ToSlash(root)),
		files: make(map[string]memEntry),
	}
}

// AddFile stores content at the given path, stamped with the current time.
// Relative paths are resolved against the filesystem root.
func (mfs *MemoryFileSystem) AddFile(p string, content string) {
	mfs.AddFileWithTime(p, content, time.Now())
}

// AddFileWithTime stores content with an explicit modification time.
func (mfs *MemoryFileSystem) AddFileWithTime(p string, content string, modTime time.Time) {
	mfs.files[mfs.resolve(p)] = memEntry{content: []byte(content), modTime: modTime}
}

// resolve maps a possibly-relative virtual path to a clean absolute one.
func (mfs *MemoryFileSystem) resolve(p string) string {
	p = filepath.ToSlash(p)
	switch {
	case p == "" || p == ".":
		return mfs.root
	case strings.HasPrefix(p, "/"):
		return path.Clean(p)
	default:
		return path.Clean(path.Join(mfs.root, p))
	}
}

// dirPrefix returns the prefix that paths inside abs share.
func dirPrefix(abs string) string {
	if abs == "/" {
		return "/"
	}
	return abs + "/"
}

// isDir reports whether abs names the root or a directory implied by a
// stored file beneath it.
func (mfs *MemoryFileSystem) isDir(abs string) bool {
	if abs == mfs.root {
		return true
	}
	prefix := dirPrefix(abs)
	for p := range mfs.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Open implements FileSystemProvider.Open.
func (mfs *MemoryFileSystem) Open(openPath string) (Directory, error) {
	abs := mfs.resolve(openPath)
	if _, ok := mfs.files[abs]; ok {
		return nil, fmt.Errorf("path is not a directory: %s", openPath)
	}
	if !mfs.isDir(abs) {
		return nil, fmt.Errorf("directory not found: %s", openPath)
	}
	return &memoryDirectory{absPath: abs, fs: mfs}, nil
}

// OpenReader implements FileSystemProvider.OpenReader.
func (mfs *MemoryFileSystem) OpenReader(filePath string) (io.ReadCloser, error) {
	content, err := mfs.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// ReadFile implements FileSystemProvider.ReadFile.
func (mfs *MemoryFileSystem) ReadFile(filePath string) ([]byte, error) {
	abs := mfs.resolve(filePath)
	entry, ok := mfs.files[abs]
	if !ok {
		if mfs.isDir(abs) {
			return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
		}
		return nil, fmt.Errorf("file not found: %s", filePath)
	}
	return entry.content, nil
}

// Stat implements FileSystemProvider.Stat.
func (mfs *MemoryFileSystem) Stat(statPath string) (FileInfo, error) {
	abs := mfs.resolve(statPath)
	if entry, ok := mfs.files[abs]; ok {
		return fileInfoFor(abs, entry), nil
	}
	if mfs.isDir(abs) {
		return dirInfoFor(abs), nil
	}
	return nil, fmt.Errorf("path not found: %s", statPath)
}

// memoryDirectory implements Directory over a MemoryFileSystem subtree.
type memoryDirectory struct {
	absPath string
	fs      *MemoryFileSystem
}

func (d *memoryDirectory) Path() string { return d.absPath }

// Walk visits the directory itself, then every implied directory and
// stored file beneath it in lexicographic path order, so parents always
// precede their children.
func (d *memoryDirectory) Walk(fn func(File, error) error) error {
	// members maps each path in the subtree to whether it is a directory.
	members := map[string]bool{d.absPath: true}
	prefix := dirPrefix(d.absPath)
	for abs := range d.fs.files {
		if !strings.HasPrefix(abs, prefix) {
			continue
		}
		members[abs] = false
		for parent := path.Dir(abs); parent != d.absPath && strings.HasPrefix(parent, prefix); parent = path.Dir(parent) {
			if _, seen := members[parent]; !seen {
				members[parent] = true
			}
		}
	}

	// visit runs the callback for one entry, converting a panic into an
	// error so a bad callback cannot take down the walk.
	visit := func(abs string) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("walk callback panicked at %s: %v", abs, r)
			}
		}()

		rel := "."
		if abs != d.absPath {
			rel = strings.TrimPrefix(abs, prefix)
		}

		walked := &memoryFile{absPath: abs, relPath: rel}
		if members[abs] {
			walked.info = dirInfoFor(abs)
		} else {
			entry := d.fs.files[abs]
			walked.content = entry.content
			walked.info = fileInfoFor(abs, entry)
		}
		return fn(walked, nil)
	}

	var skipPrefix string
	for _, abs := range slices.Sorted(maps.Keys(members)) {
		if skipPrefix != "" && strings.HasPrefix(abs, skipPrefix) {
			continue
		}

		err := visit(abs)
		switch {
		case errors.Is(err, SkipDir):
			// Skipping from a file callback drops the rest of that
			// file's directory.
			if members[abs] {
				skipPrefix = dirPrefix(abs)
			} else {
				skipPrefix = dirPrefix(path.Dir(abs))
			}
		case err != nil:
			return err
		}
	}
	return nil
}

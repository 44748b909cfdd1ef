package dump

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// SeriesWriter persists exported chunks as a numbered fixture series, so a
// later load resolves the whole export with one "<kind>_*" token.
type SeriesWriter struct {
	dir    string
	logger pgseed.Logger
}

// NewSeriesWriter creates a SeriesWriter targeting dir.
//
// Panics if logger is nil.
func NewSeriesWriter(dir string, logger pgseed.Logger) *SeriesWriter {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &SeriesWriter{dir: dir, logger: logger}
}

// Write stores the chunks as <dir>/<kind>_<index>.json, creating the
// directory if needed. Returns the written paths in series order.
func (w *SeriesWriter) Write(kind pgseed.Kind, chunks []Chunk) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}

	paths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		path := filepath.Join(w.dir, fmt.Sprintf("%s_%d.json", kind, i))
		if err := os.WriteFile(path, chunk.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write fixture %s: %w", path, err)
		}
		w.logger.Verbose("Wrote %s (%d record(s))", path, chunk.Records)
		paths = append(paths, path)
	}
	return paths, nil
}

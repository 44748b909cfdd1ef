package fixture

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Locator resolves fixture name tokens to concrete files. It walks every
// search root once at construction, indexing fixture files by stem, and
// answers all lookups from the index.
//
// Only files with a fixture extension are indexed; a stem that appears in
// more than one root resolves to the first root's match in root order.
type Locator struct {
	index  map[string]pgseed.FixtureFile
	logger pgseed.Logger
}

// NewLocator builds a locator over the OS filesystem.
// Panics if logger is nil.
func NewLocator(roots, excludeDirs []string, logger pgseed.Logger) (*Locator, error) {
	return NewLocatorWithFS(filesystem.NewOSFileSystem(), roots, excludeDirs, logger)
}

// NewLocatorWithFS builds a locator over a custom filesystem provider.
// This is primarily useful for testing with in-memory filesystems.
// Panics if fsProvider or logger is nil.
func NewLocatorWithFS(fsProvider filesystem.FileSystemProvider, roots, excludeDirs []string, logger pgseed.Logger) (*Locator, error) {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	if len(roots) == 0 {
		roots = []string{"."}
	}

	excluded := make(map[string]bool, len(excludeDirs))
	for _, name := range excludeDirs {
		excluded[name] = true
	}

	l := &Locator{
		index:  make(map[string]pgseed.FixtureFile),
		logger: logger,
	}
	for _, root := range roots {
		if err := l.indexRoot(fsProvider, root, excluded); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// indexRoot walks one search root and registers every fixture file by stem.
func (l *Locator) indexRoot(fsProvider filesystem.FileSystemProvider, root string, excluded map[string]bool) error {
	dir, err := fsProvider.Open(root)
	if err != nil {
		return fmt.Errorf("failed to open search root %s: %w", root, err)
	}

	return dir.Walk(func(file filesystem.File, err error) error {
		if err != nil {
			return fmt.Errorf("error walking search root %s: %w", root, err)
		}

		if file.Info().IsDir() {
			// The root itself is never excluded, only subdirectories.
			if file.Path() != dir.Path() && excluded[file.Info().Name()] {
				l.logger.Verbose("Skipping excluded directory: %s", file.Path())
				return filesystem.SkipDir
			}
			return nil
		}

		name := file.Info().Name()
		ext := filepath.Ext(name)
		if !isFixtureExtension(ext) {
			return nil
		}

		stem := strings.TrimSuffix(name, ext)
		if stem == "" {
			return nil
		}

		if prior, exists := l.index[stem]; exists {
			l.logger.Verbose("Fixture %s is shadowed by %s (duplicate stem %q)", file.Path(), prior.Path, stem)
			return nil
		}

		series, seriesIndex := splitSeries(stem)
		l.index[stem] = pgseed.FixtureFile{
			Path:        file.Path(),
			Name:        name,
			Stem:        stem,
			Series:      series,
			SeriesIndex: seriesIndex,
			SizeBytes:   file.Info().Size(),
			ModifiedAt:  file.Info().ModTime(),
		}
		return nil
	})
}

// Locate resolves a single name token.
//
// A series token ("widgets_*") enumerates chunks widgets_0, widgets_1, ...
// and stops at the first missing index; an empty series is not an error. A
// bare token resolves to exactly one file or fails with ErrFixtureNotFound.
func (l *Locator) Locate(token string) ([]pgseed.FixtureFile, error) {
	stem := tokenStem(token)

	if base, isSeries := strings.CutSuffix(stem, pgseed.SeriesMarker); isSeries {
		return l.locateSeries(base), nil
	}

	file, exists := l.index[stem]
	if !exists {
		return nil, fmt.Errorf("fixture %q not found in any search root: %w", token, pgseed.ErrFixtureNotFound)
	}
	return []pgseed.FixtureFile{file}, nil
}

// LocateAll resolves tokens in order, concatenating their results.
func (l *Locator) LocateAll(tokens []string) ([]pgseed.FixtureFile, error) {
	var files []pgseed.FixtureFile
	for _, token := range tokens {
		resolved, err := l.Locate(token)
		if err != nil {
			return nil, err
		}
		files = append(files, resolved...)
	}
	return files, nil
}

// Len returns the number of indexed fixture files.
func (l *Locator) Len() int {
	return len(l.index)
}

// locateSeries enumerates contiguous chunks of a series, zero-based.
// Series are gap-terminated: a missing index ends the series even when later
// indices exist. That case gets a verbose diagnostic instead of silence.
func (l *Locator) locateSeries(base string) []pgseed.FixtureFile {
	var files []pgseed.FixtureFile
	for i := 0; ; i++ {
		file, exists := l.index[fmt.Sprintf("%s_%d", base, i)]
		if !exists {
			l.diagnoseGap(base, i)
			break
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		l.logger.Verbose("Series %s%s matched no chunks (%s_0 not found)", base, pgseed.SeriesMarker, base)
	}
	return files
}

// diagnoseGap reports chunks stranded beyond the first missing index.
func (l *Locator) diagnoseGap(base string, missing int) {
	next := -1
	for _, file := range l.index {
		if file.Series != base || file.SeriesIndex <= missing {
			continue
		}
		if next == -1 || file.SeriesIndex < next {
			next = file.SeriesIndex
		}
	}
	if next != -1 {
		l.logger.Verbose("Series %s%s stops at missing chunk %s_%d; %s_%d exists beyond the gap and will not be loaded",
			base, pgseed.SeriesMarker, base, missing, base, next)
	}
}

// tokenStem strips a fixture extension from a name token, so "widgets.json"
// and "widgets" resolve identically. Dots inside kind-tagged names
// ("shop.product_0") are not extensions and stay untouched.
func tokenStem(token string) string {
	ext := filepath.Ext(token)
	if isFixtureExtension(ext) {
		return strings.TrimSuffix(token, ext)
	}
	return token
}

// splitSeries parses a stem into its series base and chunk index.
// Chunk stems are exactly base + "_" + decimal index without leading zeros;
// anything else is a standalone fixture (base "", index -1).
func splitSeries(stem string) (string, int) {
	sep := strings.LastIndex(stem, "_")
	if sep <= 0 || sep == len(stem)-1 {
		return "", -1
	}

	suffix := stem[sep+1:]
	if len(suffix) > 1 && suffix[0] == '0' {
		return "", -1
	}

	index := 0
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return "", -1
		}
		index = index*10 + int(r-'0')
	}
	return stem[:sep], index
}

// isFixtureExtension checks if the file extension indicates a fixture file.
func isFixtureExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".json":
		return true
	default:
		return false
	}
}

// Verify Locator implements the interface at compile time
var _ pgseed.FixtureLocator = (*Locator)(nil)

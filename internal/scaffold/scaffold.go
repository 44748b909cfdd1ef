// Package scaffold writes the files `pgseed init` drops into a project:
// the pgseed.yaml config and a fixtures directory seeded with a generated
// example fixture.
package scaffold

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pgseed/pgseed/internal/config"
	"github.com/pgseed/pgseed/internal/fixgen"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// ExampleFixtureName is the fixture file written into the fixtures root.
const ExampleFixtureName = "example.json"

const configHeader = "# pgseed project configuration. Run `pgseed docs config` for every key.\n"

// Result lists what CreateProject wrote and what it left untouched.
type Result struct {
	Created []string
	Skipped []string
}

// Scaffolder writes project files. With force set it overwrites existing
// files; otherwise they are preserved and reported as skipped.
type Scaffolder struct {
	logger pgseed.Logger
	force  bool
}

// NewScaffolder creates a Scaffolder that reports progress through logger.
func NewScaffolder(logger pgseed.Logger, force bool) *Scaffolder {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Scaffolder{logger: logger, force: force}
}

// CreateProject materializes a project at targetPath from cfg. A nil cfg
// falls back to config.Default(). The example fixture lands in the first
// configured fixture root.
func (s *Scaffolder) CreateProject(targetPath string, cfg *config.ProjectConfig) (*Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := ensureDirectory(targetPath); err != nil {
		return nil, err
	}

	s.logger.Verbose("Creating project at %s", targetPath)

	configData, err := renderConfig(cfg)
	if err != nil {
		return nil, err
	}

	fixtureData, err := fixgen.New().ExampleFile()
	if err != nil {
		return nil, fmt.Errorf("failed to generate example fixture: %w", err)
	}

	fixturesRoot := "fixtures"
	if len(cfg.Fixtures.Roots) > 0 {
		fixturesRoot = cfg.Fixtures.Roots[0]
	}

	result := &Result{}
	files := []struct {
		relPath string
		content []byte
	}{
		{config.ConfigFileName, configData},
		{filepath.Join(fixturesRoot, ExampleFixtureName), fixtureData},
	}

	for _, file := range files {
		if err := s.writeFile(targetPath, file.relPath, file.content, result); err != nil {
			return nil, err
		}
	}

	s.logger.Verbose("Project created: %d file(s) written, %d kept", len(result.Created), len(result.Skipped))
	return result, nil
}

// writeFile writes one project file, skipping existing files unless the
// scaffolder was created with force.
func (s *Scaffolder) writeFile(targetPath, relPath string, content []byte, result *Result) error {
	fullPath := filepath.Join(targetPath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", relPath, err)
	}

	if _, err := os.Stat(fullPath); err == nil {
		if !s.force {
			s.logger.Verbose("Keeping existing file: %s", relPath)
			result.Skipped = append(result.Skipped, relPath)
			return nil
		}
		s.logger.Verbose("Overwriting file: %s", relPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check %s: %w", relPath, err)
	} else {
		s.logger.Verbose("Creating file: %s", relPath)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	result.Created = append(result.Created, relPath)
	return nil
}

func renderConfig(cfg *config.ProjectConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project config: %w", err)
	}
	return append([]byte(configHeader), data...), nil
}

// ensureDirectory creates targetPath if missing and rejects paths that
// exist but are not directories.
func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check target directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target path '%s' exists and is not a directory", path)
	}
	return nil
}

// TreeEntry is one file on the init completion screen.
type TreeEntry struct {
	RelPath string
	Note    string
}

// RenderFileTree renders entries as a tree(1)-style listing. Entries are
// paths relative to the project root; intermediate directories are
// synthesized. The caller prints the root line itself.
func RenderFileTree(entries []TreeEntry) string {
	root := &treeNode{children: map[string]*treeNode{}}
	for _, e := range entries {
		root.insert(strings.Split(filepath.ToSlash(e.RelPath), "/"), e.Note)
	}

	var sb strings.Builder
	root.render(&sb, "")
	return sb.String()
}

// treeNode is a directory when children is non-nil, a file otherwise.
type treeNode struct {
	children map[string]*treeNode
	note     string
}

func (n *treeNode) insert(parts []string, note string) {
	if len(parts) == 0 {
		return
	}
	child, ok := n.children[parts[0]]
	if !ok {
		child = &treeNode{}
		n.children[parts[0]] = child
	}
	if len(parts) == 1 {
		child.note = note
		return
	}
	if child.children == nil {
		child.children = map[string]*treeNode{}
	}
	child.insert(parts[1:], note)
}

// render emits this node's children, extending prefix with a continuation
// bar or blank space so ancestor columns stay aligned.
func (n *treeNode) render(sb *strings.Builder, prefix string) {
	names := slices.Sorted(maps.Keys(n.children))
	for i, name := range names {
		child := n.children[name]
		branch, childPrefix := "├── ", prefix+"│   "
		if i == len(names)-1 {
			branch, childPrefix = "└── ", prefix+"    "
		}

		label := name
		if child.children != nil {
			label += "/"
		}
		if child.note != "" {
			label += " (" + child.note + ")"
		}
		sb.WriteString(prefix + branch + label + "\n")

		if child.children != nil {
			child.render(sb, childPrefix)
		}
	}
}

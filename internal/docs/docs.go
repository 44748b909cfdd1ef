// Package docs provides the user documentation embedded in the pgseed
// binary, served by the `pgseed docs` command. Topics are Markdown files
// with YAML frontmatter carrying their name and description.
package docs

import (
	"embed"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pgseed/pgseed/internal/files/filesystem"
)

//go:embed all:content
var contentFS embed.FS

// contentProvider serves the embedded tree through the same filesystem
// abstraction the fixture loaders use.
var contentProvider = filesystem.NewEmbedFileSystem(contentFS, "content")

var (
	topicNameRe = regexp.MustCompile(`(?m)^name:\s*["']?([^"'\n]+)["']?`)
	topicDescRe = regexp.MustCompile(`(?m)^description:\s*["']?([^"'\n]+)["']?`)
)

// TopicInfo contains metadata parsed from a topic's YAML frontmatter
type TopicInfo struct {
	Name        string
	Description string
	FilePath    string
}

// GetOverview returns the top-level documentation page
func GetOverview() (string, error) {
	content, err := contentProvider.ReadFile("overview.md")
	if err != nil {
		return "", fmt.Errorf("failed to read overview: %w", err)
	}
	return string(content), nil
}

// ListTopics returns all available topics with their metadata
func ListTopics() ([]TopicInfo, error) {
	dir, err := contentProvider.Open("topics")
	if err != nil {
		return nil, err
	}

	var topics []TopicInfo
	err = dir.Walk(func(f filesystem.File, err error) error {
		if err != nil {
			return err
		}

		if f.Info().IsDir() || !strings.HasSuffix(f.Path(), ".md") {
			return nil
		}

		content, err := f.ReadContent()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Path(), err)
		}

		topics = append(topics, parseTopicFrontmatter(string(content), f.Path()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by name
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].Name < topics[j].Name
	})

	return topics, nil
}

// GetTopic returns the body of a topic with its frontmatter stripped,
// ready to print
func GetTopic(name string) (string, error) {
	content, err := contentProvider.ReadFile(fmt.Sprintf("topics/%s.md", name))
	if err == nil {
		return stripFrontmatter(string(content)), nil
	}

	// List available topics for the error message
	topics, listErr := ListTopics()
	if listErr != nil {
		return "", fmt.Errorf("topic '%s' not found", name)
	}

	var names []string
	for _, t := range topics {
		names = append(names, t.Name)
	}

	return "", fmt.Errorf("topic '%s' not found. Available topics: %s", name, strings.Join(names, ", "))
}

// GetTopicNames returns just the names of available topics
func GetTopicNames() ([]string, error) {
	topics, err := ListTopics()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Name
	}
	return names, nil
}

// parseTopicFrontmatter extracts name and description from YAML frontmatter
func parseTopicFrontmatter(content, path string) TopicInfo {
	info := TopicInfo{
		FilePath: path,
	}

	// Default name from filename
	base := filepath.Base(path)
	info.Name = strings.TrimSuffix(base, ".md")

	// Parse YAML frontmatter
	if !strings.HasPrefix(content, "---") {
		return info
	}

	endIdx := strings.Index(content[3:], "---")
	if endIdx == -1 {
		return info
	}

	frontmatter := content[3 : endIdx+3]

	// Extract name
	if matches := topicNameRe.FindStringSubmatch(frontmatter); len(matches) > 1 {
		info.Name = strings.TrimSpace(matches[1])
	}

	// Extract description
	if matches := topicDescRe.FindStringSubmatch(frontmatter); len(matches) > 1 {
		info.Description = strings.TrimSpace(matches[1])
	}

	return info
}

// stripFrontmatter removes the YAML frontmatter block so command output
// starts at the document body.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	endIdx := strings.Index(content[3:], "---")
	if endIdx == -1 {
		return content
	}

	return strings.TrimLeft(content[endIdx+6:], "\n")
}

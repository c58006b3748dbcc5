package registry

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed feeds.yaml
var defaultCatalog []byte

// File is the on-disk feed catalog.
type File struct {
	Sections []SectionConfig `yaml:"sections"`
	Quirks   QuirkConfig     `yaml:"quirks"`
}

type SectionConfig struct {
	Name      string           `yaml:"name"`
	Languages []LanguageConfig `yaml:"languages"`
}

type LanguageConfig struct {
	Code       string           `yaml:"code"`
	Categories []CategoryConfig `yaml:"categories"`
}

type CategoryConfig struct {
	Name  string   `yaml:"name"`
	Feeds FeedURLs `yaml:"feeds"`
}

// QuirkConfig lists per-publisher cleanup applied during normalization.
type QuirkConfig struct {
	SuppressSources     []string `yaml:"suppressSources"`
	ContentImageSources []string `yaml:"contentImageSources"`
	TitleBoilerplate    []string `yaml:"titleBoilerplate"`
}

// FeedURLs accepts either a single URL or a list of URLs.
type FeedURLs []string

func (f *FeedURLs) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*f = FeedURLs{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*f = FeedURLs(list)
		return nil
	default:
		return fmt.Errorf("line %d: feeds must be a URL or a list of URLs", node.Line)
	}
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse feed catalog: %w", err)
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the catalog compiled into the binary.
func Default() *File {
	f, err := Parse(defaultCatalog)
	if err != nil {
		panic("registry: embedded catalog is invalid: " + err.Error())
	}
	return f
}

// FindConfig searches common locations for a catalog file. An explicit path
// wins over the FEEDS_CONFIG_PATH variable, which wins over the defaults.
func FindConfig(explicit string) string {
	locations := []string{
		"feeds.yaml",
		"config/feeds.yaml",
		"../feeds.yaml",
		"/app/feeds.yaml",
	}
	if envPath := os.Getenv("FEEDS_CONFIG_PATH"); envPath != "" {
		locations = append([]string{envPath}, locations...)
	}
	if explicit != "" {
		locations = append([]string{explicit}, locations...)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}
	return ""
}

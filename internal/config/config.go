// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTemplate       = "simple"
	DefaultSources        = "sources.yaml"
	DefaultHighlightStyle = "github"
)

// SiteConfig holds the configuration from site.yaml (or site.toml).
type SiteConfig struct {
	Title       string       `yaml:"title" toml:"title"`
	Author      string       `yaml:"author" toml:"author"`
	Email       string       `yaml:"email" toml:"email"`
	BaseURL     string       `yaml:"baseurl" toml:"baseurl"`
	Description string       `yaml:"description" toml:"description"`
	Template    string       `yaml:"template" toml:"template"`
	Highlight   Highlight    `yaml:"highlight" toml:"highlight"`
	Collections []Collection `yaml:"collections" toml:"collections"`
}

// Highlight configures code block highlighting.
type Highlight struct {
	Disabled    bool   `yaml:"disabled" toml:"disabled"`
	Style       string `yaml:"style" toml:"style"`
	LineNumbers bool   `yaml:"lineNumbers" toml:"lineNumbers"`
}

// Collection is a directory of lecture pages sharing one page registry.
type Collection struct {
	// Dir is the collection's directory relative to the content root, in
	// slash form, e.g. "cs-274/lecture-notes".
	Dir   string `yaml:"dir" toml:"dir"`
	Title string `yaml:"title" toml:"title"`
	// Root is the marker segment URL paths start from: the first segment
	// of Dir, so a collection's URL path mirrors its directory.
	Root string `yaml:"-" toml:"-"`
	// Sources names the registry file inside Dir.
	Sources string `yaml:"sources" toml:"sources"`
}

// SourcesPath is the registry file of c under contentDir.
func (c Collection) SourcesPath(contentDir string) string {
	return filepath.Join(contentDir, filepath.FromSlash(c.Dir), c.Sources)
}

// LoadSiteConfig reads a YAML or TOML site config, picked by extension, then
// fills defaults and validates it.
func LoadSiteConfig(configPath string) (SiteConfig, error) {
	cfg := SiteConfig{}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("could not read config file at %s: %w", configPath, err)
	}

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("could not parse config file %s: %w", configPath, err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("could not parse config file %s: %w", configPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return SiteConfig{}, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

func (cfg *SiteConfig) normalize() error {
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	if cfg.Highlight.Style == "" {
		cfg.Highlight.Style = DefaultHighlightStyle
	}

	seen := make(map[string]bool)
	for i := range cfg.Collections {
		c := &cfg.Collections[i]
		c.Dir = strings.Trim(path.Clean(filepath.ToSlash(c.Dir)), "/")
		if c.Dir == "" || c.Dir == "." || strings.HasPrefix(c.Dir, "..") {
			return fmt.Errorf("collection %d: dir must be a path inside the content directory", i)
		}
		if seen[c.Dir] {
			return fmt.Errorf("collection %q is listed twice", c.Dir)
		}
		seen[c.Dir] = true

		segs := strings.Split(c.Dir, "/")
		c.Root = segs[0]
		// URL paths start at the last occurrence of the root segment.
		for _, seg := range segs[1:] {
			if seg == c.Root {
				return fmt.Errorf("collection %q: segment %q appears more than once, so URL paths could not mirror the directory", c.Dir, c.Root)
			}
		}
		if c.Sources == "" {
			c.Sources = DefaultSources
		}
		if c.Title == "" {
			c.Title = cfg.Title
		}
	}
	return nil
}

// CollectionFor returns the collection whose dir is the longest prefix of
// location (slash form, relative to the content root).
func (cfg SiteConfig) CollectionFor(location string) (Collection, bool) {
	location = strings.Trim(location, "/")
	var best Collection
	found := false
	for _, c := range cfg.Collections {
		if location != c.Dir && !strings.HasPrefix(location, c.Dir+"/") {
			continue
		}
		if !found || len(c.Dir) > len(best.Dir) {
			best, found = c, true
		}
	}
	return best, found
}

// Collection returns the collection declared with exactly dir.
func (cfg SiteConfig) Collection(dir string) (Collection, bool) {
	dir = strings.Trim(path.Clean(filepath.ToSlash(dir)), "/")
	for _, c := range cfg.Collections {
		if c.Dir == dir {
			return c, true
		}
	}
	return Collection{}, false
}

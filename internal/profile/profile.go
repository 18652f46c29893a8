// Package profile holds the point-in-time scraping rules for one filing:
// the substrings that mark tagged facts, the section headings to harvest,
// and the table of extra section URLs to fetch. Rules live in data so they
// can be replaced per filing without touching fetch or normalize code.
package profile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// BasePlaceholder in a section URL is replaced with the run's base URL.
const BasePlaceholder = "{base}"

//go:embed default.yaml
var defaultYAML []byte

// Heading names a section label and the case-insensitive pattern used to
// find its first occurrence in the document text.
type Heading struct {
	Label   string `yaml:"label" json:"label" toml:"label"`
	Pattern string `yaml:"pattern" json:"pattern" toml:"pattern"`
}

// Section is an extra document fetched after the main extraction.
type Section struct {
	Name string `yaml:"name" json:"name" toml:"name"`
	URL  string `yaml:"url" json:"url" toml:"url"`
}

// Profile is the full rule set. Order of Headings and Sections is the order
// their results are merged into the extraction map.
type Profile struct {
	Markers  []string  `yaml:"markers" json:"markers" toml:"markers"`
	Headings []Heading `yaml:"headings" json:"headings" toml:"headings"`
	Sections []Section `yaml:"sections" json:"sections" toml:"sections"`
}

// Default returns the built-in profile.
func Default() Profile {
	p, err := Parse(defaultYAML, "yaml")
	if err != nil {
		panic(fmt.Sprintf("profile: embedded default is invalid: %v", err))
	}
	return p
}

// Load reads a profile from a YAML, JSON or TOML file, chosen by extension.
// Unknown extensions are tried as YAML.
func Load(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Parse(b, format)
}

// Parse decodes a profile in the given format ("yaml", "yml", "json" or
// "toml") and validates it.
func Parse(b []byte, format string) (Profile, error) {
	var p Profile
	switch format {
	case "json":
		if err := json.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("parse json: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks that every heading compiles and every entry is named.
func (p Profile) Validate() error {
	for i, m := range p.Markers {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("profile: marker %d is empty", i)
		}
	}
	for i, h := range p.Headings {
		if strings.TrimSpace(h.Label) == "" {
			return fmt.Errorf("profile: heading %d has no label", i)
		}
		if _, err := h.Regexp(); err != nil {
			return fmt.Errorf("profile: heading %q: %w", h.Label, err)
		}
	}
	for i, s := range p.Sections {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("profile: section %d has no name", i)
		}
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("profile: section %q has no url", s.Name)
		}
	}
	return nil
}

// Regexp compiles the heading pattern case-insensitively.
func (h Heading) Regexp() (*regexp.Regexp, error) {
	if strings.TrimSpace(h.Pattern) == "" {
		return nil, errors.New("empty pattern")
	}
	return regexp.Compile("(?i)" + h.Pattern)
}

// ResolveURL substitutes the base URL into the section URL.
func (s Section) ResolveURL(baseURL string) string {
	return strings.ReplaceAll(s.URL, BasePlaceholder, strings.TrimRight(baseURL, "/"))
}

// YAML renders the profile in the same layout as the embedded default.
func (p Profile) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the on-disk configuration schema. Durations are strings in
// time.ParseDuration form so YAML, JSON and TOML read them the same way.
type FileConfig struct {
	Filing struct {
		URL  string `yaml:"url" json:"url" toml:"url"`
		Base string `yaml:"base" json:"base" toml:"base"`
	} `yaml:"filing" json:"filing" toml:"filing"`

	Output struct {
		Dir      string `yaml:"dir" json:"dir" toml:"dir"`
		Document string `yaml:"document" json:"document" toml:"document"`
		Raw      string `yaml:"raw" json:"raw" toml:"raw"`
		Cleaned  string `yaml:"cleaned" json:"cleaned" toml:"cleaned"`
	} `yaml:"output" json:"output" toml:"output"`

	HTTP struct {
		UserAgent   string   `yaml:"userAgent" json:"userAgent" toml:"userAgent"`
		Timeout     string   `yaml:"timeout" json:"timeout" toml:"timeout"`
		// Pointers so an explicit 0 is distinguishable from unset.
		Rate        *float64 `yaml:"rate" json:"rate" toml:"rate"`
		Concurrency *int     `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
	} `yaml:"http" json:"http" toml:"http"`

	Profile string `yaml:"profile" json:"profile" toml:"profile"`

	Cache struct {
		Enable      bool   `yaml:"enable" json:"enable" toml:"enable"`
		Dir         string `yaml:"dir" json:"dir" toml:"dir"`
		Clear       bool   `yaml:"clear" json:"clear" toml:"clear"`
		MaxAge      string `yaml:"maxAge" json:"maxAge" toml:"maxAge"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms" toml:"strictPerms"`
	} `yaml:"cache" json:"cache" toml:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose" toml:"verbose"`
}

// LoadConfigFile reads YAML, JSON or TOML into FileConfig, chosen by
// extension. Unknown extensions are tried as YAML, then JSON.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. Callers apply it
// before environment and flags so those keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	setString := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	setString(&cfg.FilingURL, fc.Filing.URL)
	setString(&cfg.BaseURL, fc.Filing.Base)
	setString(&cfg.OutputDir, fc.Output.Dir)
	setString(&cfg.DocumentPath, fc.Output.Document)
	setString(&cfg.RawJSONPath, fc.Output.Raw)
	setString(&cfg.CleanedJSONPath, fc.Output.Cleaned)
	setString(&cfg.UserAgent, fc.HTTP.UserAgent)
	setString(&cfg.ProfilePath, fc.Profile)
	setString(&cfg.CacheDir, fc.Cache.Dir)

	if fc.HTTP.Timeout != "" {
		d, err := time.ParseDuration(fc.HTTP.Timeout)
		if err != nil {
			return fmt.Errorf("config: http.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.HTTP.Rate != nil {
		cfg.RatePerSecond = *fc.HTTP.Rate
	}
	if fc.HTTP.Concurrency != nil {
		cfg.Concurrency = *fc.HTTP.Concurrency
	}
	if fc.Cache.MaxAge != "" {
		d, err := time.ParseDuration(fc.Cache.MaxAge)
		if err != nil {
			return fmt.Errorf("config: cache.maxAge: %w", err)
		}
		cfg.CacheMaxAge = d
	}
	if fc.Cache.Enable {
		cfg.CacheEnabled = true
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	return nil
}

// ValidateConfig performs minimal validation for required settings.
func ValidateConfig(cfg Config) error {
	if err := validateHTTPURL("filing url", cfg.FilingURL); err != nil {
		return err
	}
	if err := validateHTTPURL("base url", cfg.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.DocumentPath) == "" || strings.TrimSpace(cfg.RawJSONPath) == "" || strings.TrimSpace(cfg.CleanedJSONPath) == "" {
		return errors.New("config: artifact paths must not be empty")
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return errors.New("config: user agent is required")
	}
	if cfg.Timeout < 0 || cfg.RatePerSecond < 0 || cfg.Concurrency < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("config: %s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: %s must be an absolute http(s) URL: %q", field, raw)
	}
	return nil
}

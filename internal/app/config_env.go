package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "FILINGHARVEST_"

// ApplyEnvOverrides overlays FILINGHARVEST_* environment variables onto cfg.
// Environment values take precedence over the config file; flags are applied
// afterwards by the CLI. Malformed numbers and durations are errors.
func ApplyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	setString := func(dst *string, name string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + name)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.FilingURL, "FILING_URL")
	setString(&cfg.BaseURL, "BASE_URL")
	setString(&cfg.OutputDir, "OUTPUT_DIR")
	setString(&cfg.DocumentPath, "DOCUMENT")
	setString(&cfg.RawJSONPath, "RAW_JSON")
	setString(&cfg.CleanedJSONPath, "CLEANED_JSON")
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.ProfilePath, "PROFILE")
	setString(&cfg.CacheDir, "CACHE_DIR")

	if err := envDuration(&cfg.Timeout, "TIMEOUT"); err != nil {
		return err
	}
	if err := envDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE"); err != nil {
		return err
	}
	if s := strings.TrimSpace(os.Getenv(EnvPrefix + "RATE")); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("env %sRATE: %w", EnvPrefix, err)
		}
		cfg.RatePerSecond = f
	}
	if s := strings.TrimSpace(os.Getenv(EnvPrefix + "CONCURRENCY")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("env %sCONCURRENCY: %w", EnvPrefix, err)
		}
		cfg.Concurrency = n
	}

	envBool(&cfg.CacheEnabled, "CACHE")
	envBool(&cfg.CacheClear, "CACHE_CLEAR")
	envBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	envBool(&cfg.Verbose, "VERBOSE")
	return nil
}

func envDuration(dst *time.Duration, name string) error {
	s := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("env %s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}

// envBool accepts 1/true/yes/on and 0/false/no/off; anything else is ignored.
func envBool(dst *bool, name string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvPrefix + name))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

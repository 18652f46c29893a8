package app

import (
	"time"
)

// Defaults for the filing the tool was first written against: Apple's 10-Q
// for the quarter ending 2024-12-28.
const (
	DefaultFilingURL       = "https://www.sec.gov/Archives/edgar/data/0000320193/000032019325000008/aapl-20241228.htm"
	DefaultBaseURL         = "https://www.sec.gov/Archives/edgar/data/0000320193/000032019325000008"
	DefaultDocumentPath    = "aapl_20241228.html"
	DefaultRawJSONPath     = "apple_2024_xbrl_data.json"
	DefaultCleanedJSONPath = "cleaned_apple_2024_xbrl_data.json"
	DefaultTimeout         = 30 * time.Second
	// EDGAR asks automated clients to stay at or under ten requests per second.
	DefaultRatePerSecond = 10
)

// Config holds runtime configuration for the application.
type Config struct {
	// Filing
	FilingURL string
	BaseURL   string

	// Artifacts. Relative paths are joined onto OutputDir.
	OutputDir       string
	DocumentPath    string
	RawJSONPath     string
	CleanedJSONPath string

	// HTTP
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Concurrency   int

	// Scraping rules; empty uses the built-in profile.
	ProfilePath string

	// Cache
	CacheEnabled     bool
	CacheDir         string
	CacheClear       bool
	CacheMaxAge      time.Duration
	CacheStrictPerms bool

	Verbose bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		FilingURL:       DefaultFilingURL,
		BaseURL:         DefaultBaseURL,
		OutputDir:       ".",
		DocumentPath:    DefaultDocumentPath,
		RawJSONPath:     DefaultRawJSONPath,
		CleanedJSONPath: DefaultCleanedJSONPath,
		UserAgent:       userAgentProduct() + " (+https://github.com/hyperifyio/filingharvest)",
		Timeout:         DefaultTimeout,
		RatePerSecond:   DefaultRatePerSecond,
		Concurrency:     1,
	}
}

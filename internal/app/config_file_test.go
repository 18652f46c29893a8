package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"c.yaml": "filing:\n  url: https://example.test/a.htm\nhttp:\n  timeout: 5s\n  rate: 2\ncache:\n  enable: true\n",
		"c.json": `{"filing":{"url":"https://example.test/a.htm"},"http":{"timeout":"5s","rate":2},"cache":{"enable":true}}`,
		"c.toml": "[filing]\nurl = \"https://example.test/a.htm\"\n[http]\ntimeout = \"5s\"\nrate = 2.0\n[cache]\nenable = true\n",
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
			fc, err := LoadConfigFile(p)
			require.NoError(t, err)

			cfg := DefaultConfig()
			require.NoError(t, ApplyFileConfig(&cfg, fc))
			assert.Equal(t, "https://example.test/a.htm", cfg.FilingURL)
			assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
			assert.Equal(t, 5*time.Second, cfg.Timeout)
			assert.Equal(t, 2.0, cfg.RatePerSecond)
			assert.True(t, cfg.CacheEnabled)
		})
	}
}

func TestApplyFileConfig_ExplicitZeroRate(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"z.yaml": "http:\n  rate: 0\n",
		"z.json": `{"http":{"rate":0}}`,
		"z.toml": "[http]\nrate = 0.0\n",
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		fc, err := LoadConfigFile(p)
		require.NoError(t, err)

		cfg := DefaultConfig()
		require.NoError(t, ApplyFileConfig(&cfg, fc))
		assert.Zero(t, cfg.RatePerSecond, name)
		assert.Equal(t, 1, cfg.Concurrency, name)
	}
}

func TestApplyFileConfig_BadDuration(t *testing.T) {
	var fc FileConfig
	fc.Cache.MaxAge = "a week"
	cfg := DefaultConfig()
	assert.Error(t, ApplyFileConfig(&cfg, fc))
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultConfig()))

	cases := map[string]func(*Config){
		"missing filing": func(c *Config) { c.FilingURL = "" },
		"relative base":  func(c *Config) { c.BaseURL = "/edgar/data" },
		"bad scheme":     func(c *Config) { c.FilingURL = "file:///tmp/a.htm" },
		"empty artifact": func(c *Config) { c.RawJSONPath = " " },
		"no user agent":  func(c *Config) { c.UserAgent = "" },
		"negative rate":  func(c *Config) { c.RatePerSecond = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestArtifactPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = "out"
	assert.Equal(t, filepath.Join("out", DefaultRawJSONPath), cfg.RawJSONFile())

	abs := filepath.Join(t.TempDir(), "doc.html")
	cfg.DocumentPath = abs
	assert.Equal(t, abs, cfg.DocumentFile())
}

func TestWriteFileAtomic_Replaces(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "a.json")
	require.NoError(t, writeFileAtomic(p, []byte("one")))
	require.NoError(t, writeFileAtomic(p, []byte("two")))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "filingharvest", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	v := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, v)
	assert.Equal(t, "v", v.Shorthand)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"run", "fetch", "extract", "clean", "profile", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "filingharvest version "))
	assert.Contains(t, out, "commit:")
}

func TestProfileCmd_PrintsDefault(t *testing.T) {
	out, err := execute(t, "profile", "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "markers:")
	assert.Contains(t, out, "us-gaap")
	assert.Contains(t, out, "Risk Factors")
	assert.Contains(t, out, "{base}/#i248a31500c42474f94fb8d3d2dd90051_160")
}

func TestProfileCmd_LeavesCacheAlone(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, filepath.Join(dir, "abc.meta.json"), `{"saved_at":"2000-01-01T00:00:00Z"}`)

	_, err := execute(t, "profile", "--env-file", "",
		"--cache", "--cache-dir", dir, "--cache-clear", "--cache-max-age", "1h")
	require.NoError(t, err)
	assert.FileExists(t, entry)
}

func TestProfileCmd_CustomProfile(t *testing.T) {
	p := writeFile(t, filepath.Join(t.TempDir(), "p.json"), `{"markers":["ifrs-full"]}`)
	out, err := execute(t, "profile", "--env-file", "", "--profile", p)
	require.NoError(t, err)
	assert.Contains(t, out, "ifrs-full")
	assert.NotContains(t, out, "us-gaap")
}

func TestInvalidFlagValueFails(t *testing.T) {
	_, err := execute(t, "profile", "--env-file", "", "--filing-url", "ftp://example.test/a.htm")
	assert.Error(t, err)
}

const cliFiling = `<html><body>
<ix:nonfraction name="us-gaap:EarningsPerShareDiluted">2.40</ix:nonfraction>
<a href="#i_part1">Part I</a>
</body></html>`

func newFilingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/f/doc.htm" || status != http.StatusOK {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(cliFiling))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCmd_LayersConfigEnvAndFlags(t *testing.T) {
	srv := newFilingServer(t, http.StatusOK)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	prof := writeFile(t, filepath.Join(dir, "p.yaml"), "markers: [us-gaap]\n")
	conf := writeFile(t, filepath.Join(dir, "c.yaml"),
		"filing:\n  url: "+srv.URL+"/f/doc.htm\n  base: "+srv.URL+"/f\noutput:\n  dir: /nonexistent\n  raw: file_raw.json\nhttp:\n  rate: 0\n")
	t.Setenv("FILINGHARVEST_RAW_JSON", "")
	envFile := writeFile(t, filepath.Join(dir, ".env"), "FILINGHARVEST_RAW_JSON=env_raw.json\n")

	_, err := execute(t, "run",
		"--config", conf,
		"--env-file", envFile,
		"--output-dir", out,
		"--profile", prof,
		"--rate", "0",
	)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "env_raw.json"))
	assert.NoFileExists(t, filepath.Join(out, "file_raw.json"))
	assert.FileExists(t, filepath.Join(out, "aapl_20241228.html"))

	b, err := os.ReadFile(filepath.Join(out, "cleaned_apple_2024_xbrl_data.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Earnings Per Share Diluted": "2.40"`)
	assert.Contains(t, string(b), `"Part I": "`+srv.URL+`/f/#i_part1"`)
}

func TestRunCmd_PrimaryFailureExitsCleanly(t *testing.T) {
	srv := newFilingServer(t, http.StatusNotFound)
	dir := t.TempDir()
	prof := writeFile(t, filepath.Join(dir, "p.yaml"), "markers: [us-gaap]\n")

	_, err := execute(t, "run",
		"--env-file", "",
		"--filing-url", srv.URL+"/f/doc.htm",
		"--base-url", srv.URL+"/f",
		"--output-dir", dir,
		"--profile", prof,
		"--rate", "0",
	)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p.yaml", entries[0].Name())
}

func TestStageCmds(t *testing.T) {
	srv := newFilingServer(t, http.StatusOK)
	dir := t.TempDir()
	prof := writeFile(t, filepath.Join(dir, "p.yaml"), "markers: [us-gaap]\n")
	common := []string{
		"--env-file", "",
		"--filing-url", srv.URL + "/f/doc.htm",
		"--base-url", srv.URL + "/f",
		"--output-dir", dir,
		"--profile", prof,
		"--rate", "0",
	}

	_, err := execute(t, append([]string{"fetch"}, common...)...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "aapl_20241228.html"))
	assert.NoFileExists(t, filepath.Join(dir, "apple_2024_xbrl_data.json"))

	_, err = execute(t, append([]string{"extract"}, common...)...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "apple_2024_xbrl_data.json"))
	assert.NoFileExists(t, filepath.Join(dir, "cleaned_apple_2024_xbrl_data.json"))

	_, err = execute(t, append([]string{"clean"}, common...)...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "cleaned_apple_2024_xbrl_data.json"))
}

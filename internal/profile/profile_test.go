package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Shape(t *testing.T) {
	p := Default()
	assert.Equal(t, []string{"xbrl", "us-gaap", "ifrs", "dei", "srt", "iso4217"}, p.Markers)
	require.Len(t, p.Headings, 8)
	require.Len(t, p.Sections, 15)
	assert.Equal(t, "Management's Discussion and Analysis (MD&A)", p.Headings[1].Label)
	assert.Equal(t, "Management's Discussion and Analysis", p.Headings[1].Pattern)
	assert.Equal(t, "Legal Proceedings", p.Sections[0].Name)
	assert.Equal(t, "Item 6.", p.Sections[14].Name)
}

func TestSection_ResolveURL(t *testing.T) {
	p := Default()
	base := "https://www.sec.gov/Archives/edgar/data/0000320193/000032019325000008"
	assert.Equal(t, base+"/#i248a31500c42474f94fb8d3d2dd90051_10", p.Sections[1].ResolveURL(base))
	assert.Equal(t, base+"/#i248a31500c42474f94fb8d3d2dd90051_10", p.Sections[1].ResolveURL(base+"/"))
	// absolute entries are left alone
	assert.Equal(t, p.Sections[0].URL, p.Sections[0].ResolveURL(base))
}

func TestHeading_RegexpCaseInsensitive(t *testing.T) {
	re, err := Heading{Label: "x", Pattern: "Risk Factors"}.Regexp()
	require.NoError(t, err)
	assert.True(t, re.MatchString("Item 1A. RISK FACTORS"))
}

func TestParse_RejectsBadPattern(t *testing.T) {
	_, err := Parse([]byte("headings:\n  - label: bad\n    pattern: \"(unclosed\"\n"), "yaml")
	assert.Error(t, err)
}

func TestParse_RejectsUnnamedSection(t *testing.T) {
	_, err := Parse([]byte(`{"sections":[{"url":"https://x"}]}`), "json")
	assert.Error(t, err)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.toml")
	content := `markers = ["us-gaap"]

[[headings]]
label = "Risk"
pattern = "risk"

[[sections]]
name = "Part I"
url = "{base}/#a"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"us-gaap"}, p.Markers)
	assert.Equal(t, "Risk", p.Headings[0].Label)
	assert.Equal(t, "https://b/#a", p.Sections[0].ResolveURL("https://b"))
}

func TestYAML_RoundTrip(t *testing.T) {
	b, err := Default().YAML()
	require.NoError(t, err)
	p, err := Parse(b, "yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCache_SaveLoad(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	u := "https://www.sec.gov/Archives/edgar/data/320193/aapl.htm"

	require.NoError(t, c.Save(ctx, u, "text/html", `"e1"`, "Mon, 02 Jan 2006 15:04:05 GMT", []byte("<html>x</html>")))

	meta, err := c.LoadMeta(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, `"e1"`, meta.ETag)
	assert.Equal(t, "text/html", meta.ContentType)
	assert.WithinDuration(t, time.Now().UTC(), meta.SavedAt, time.Minute)

	body, err := c.LoadBody(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "<html>x</html>", string(body))
}

func TestKey_IgnoresFragment(t *testing.T) {
	t.Parallel()
	base := "https://www.sec.gov/Archives/edgar/data/0000320193/000032019325000008"
	assert.Equal(t, Key(base+"/#i1_10"), Key(base+"/#i1_160"))
	assert.NotEqual(t, Key(base+"/a.htm"), Key(base+"/b.htm"))
}

func TestHTTPCache_Miss(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	_, err := c.LoadMeta(context.Background(), "https://example.com/none")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTTPCache_NotConfigured(t *testing.T) {
	t.Parallel()
	var c *HTTPCache
	_, err := c.LoadBody(context.Background(), "https://example.com")
	assert.Error(t, err)
}

func TestHTTPCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	u := "https://example.com/x"
	require.NoError(t, c.Save(context.Background(), u, "text/html", "etag", "", []byte("hello")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	finfo, err := os.Stat(filepath.Join(dir, Key(u)+".body"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), finfo.Mode().Perm())
}

func TestPurgeByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()
	require.NoError(t, c.Save(ctx, "https://a/old", "text/html", "", "", []byte("old")))
	require.NoError(t, c.Save(ctx, "https://a/new", "text/html", "", "", []byte("new")))

	// Backdate one entry.
	metaPath := filepath.Join(dir, Key("https://a/old")+".meta.json")
	stale, err := json.Marshal(Entry{URL: "https://a/old", SavedAt: time.Now().UTC().Add(-48 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(metaPath, stale, 0o644))

	removed, err := PurgeByAge(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = c.LoadBody(ctx, "https://a/old")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = c.LoadBody(ctx, "https://a/new")
	assert.NoError(t, err)
}

func TestPurgeByAge_MissingDir(t *testing.T) {
	t.Parallel()
	n, err := PurgeByAge(filepath.Join(t.TempDir(), "nope"), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClearDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644))
	require.NoError(t, ClearDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Error(t, ClearDir("  "))
}

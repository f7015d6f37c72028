package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k1 := Key("search", "brave", "eiffel tower height")
	k2 := Key("search", "brave", "eiffel tower height")
	k3 := Key("scrape", "brave", "eiffel tower height")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, "factcheck-v1-search-"))
	assert.NotContains(t, k1, " ")
	// part boundaries matter
	assert.NotEqual(t, Key("s", "ab", "c"), Key("s", "a", "bc"))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	value := []byte("hello")
	require.NoError(t, c.Set("k", value, 0))
	value[0] = 'j'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, c.Delete("k"))
	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	require.NoError(t, c.Set("old", []byte("v"), time.Minute))
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := c.Get("old")
	assert.False(t, ok)
	_, err := os.Stat(c.path("old"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cache"), []byte("{not json"), 0o644))
	_, ok = c.Get("bad")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	// write directly to disk only
	require.NoError(t, NewDiskCache(dir, time.Hour).Set("k", []byte("v"), 0))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	mem, ok := c.memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(mem))

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	type item struct {
		Title string `json:"title"`
		Rank  int    `json:"rank"`
	}

	require.NoError(t, SetJSON(c, "k", []item{{"a", 1}, {"b", 2}}, 0))

	var got []item
	require.True(t, GetJSON(c, "k", &got))
	assert.Equal(t, []item{{"a", 1}, {"b", 2}}, got)

	var missing []item
	assert.False(t, GetJSON(c, "nope", &missing))
}

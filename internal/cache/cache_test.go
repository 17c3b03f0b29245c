package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iosxeURL = "https://example.com/OSType/iosxe?version=17.9.3"

func TestCacheSetGet(t *testing.T) {
	c, err := NewAt(t.TempDir(), time.Hour)
	require.NoError(t, err)

	_, ok := c.Get(iosxeURL)
	assert.False(t, ok)

	require.NoError(t, c.Set(iosxeURL, []byte(`{"advisories":[]}`)))

	data, ok := c.Get(iosxeURL)
	require.True(t, ok)
	assert.JSONEq(t, `{"advisories":[]}`, string(data))

	_, ok = c.Get("https://example.com/OSType/nxos?version=17.9.3")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c, err := NewAt(t.TempDir(), time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set("key", []byte("data")))

	now = now.Add(30 * time.Second)
	_, ok := c.Get("key")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("key")
	assert.False(t, ok)
}

func TestCacheKeyMismatchIsMiss(t *testing.T) {
	c, err := NewAt(t.TempDir(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set("a", []byte("1")))

	// simulate a file name collision
	require.NoError(t, os.Rename(c.Path("a"), c.Path("b")))
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	c, err := NewAt(t.TempDir(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.Path("a"), []byte("not json"), 0o644))

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheDelete(t *testing.T) {
	c, err := NewAt(t.TempDir(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set("a", []byte("1")))

	require.NoError(t, c.Delete("a"))
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.NoError(t, c.Delete("a"))
}

func TestCachePrune(t *testing.T) {
	c, err := NewAt(t.TempDir(), time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set("old", []byte("1")))
	now = now.Add(2 * time.Minute)
	require.NoError(t, c.Set("fresh", []byte("2")))
	require.NoError(t, os.WriteFile(c.Path("corrupt"), []byte("{"), 0o644))

	removed, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCacheDefaultTTLAndClear(t *testing.T) {
	c, err := NewAt(t.TempDir(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.TTL)

	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("2")))
	require.NoError(t, c.Clear())

	entries, err := os.ReadDir(c.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

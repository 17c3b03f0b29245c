// Package cache holds the advisory caches: a persistent on-disk cache of raw
// API responses shared across runs, and the per-run RunCache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTTL is how long a stored response stays fresh
const DefaultTTL = 24 * time.Hour

// Cache stores raw advisory responses on disk, one file per request key
type Cache struct {
	Dir string
	TTL time.Duration

	now func() time.Time
}

// entryFile is the on-disk form of one cached response
type entryFile struct {
	Key      string    `json:"key"`
	StoredAt time.Time `json:"stored_at"`
	Body     []byte    `json:"body"`
}

// New creates a cache under ~/.cache/<appName>
func New(appName string, ttl time.Duration) (*Cache, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewAt(filepath.Join(homeDir, ".cache", appName), ttl)
}

// NewAt creates a cache rooted at dir. A zero ttl means DefaultTTL.
func NewAt(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{Dir: dir, TTL: ttl, now: time.Now}, nil
}

// Path returns the file backing a request key
func (c *Cache) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.Dir, hex.EncodeToString(sum[:16])+".json")
}

// Get returns the stored response for key while it is fresh. Entries written
// for a different key under the same file name count as misses.
func (c *Cache) Get(key string) ([]byte, bool) {
	e, err := c.read(c.Path(key))
	if err != nil || e.Key != key || c.expired(e) {
		return nil, false
	}
	return e.Body, true
}

// Set stores a response. The entry is written to a temporary file and
// renamed, so concurrent readers never observe a partial entry.
func (c *Cache) Set(key string, body []byte) error {
	data, err := json.Marshal(entryFile{Key: key, StoredAt: c.now().UTC(), Body: body})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.Dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.Path(key))
}

// Delete drops the entry for key, if any
func (c *Cache) Delete(key string) error {
	err := os.Remove(c.Path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Prune removes expired and unreadable entries and returns how many were removed
func (c *Cache) Prune() (int, error) {
	files, err := c.files()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range files {
		e, err := c.read(path)
		if err == nil && !c.expired(e) {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed, nil
}

// Clear removes every entry
func (c *Cache) Clear() error {
	files, err := c.files()
	if err != nil {
		return err
	}
	for _, path := range files {
		os.Remove(path)
	}
	return nil
}

func (c *Cache) files() ([]string, error) {
	dirEntries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, d := range dirEntries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(c.Dir, d.Name()))
	}
	return files, nil
}

func (c *Cache) read(path string) (entryFile, error) {
	var e entryFile
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(data, &e)
	return e, err
}

func (c *Cache) expired(e entryFile) bool {
	return c.now().Sub(e.StoredAt) > c.TTL
}

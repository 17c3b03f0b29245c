package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// Key identifies one advisory lookup
type Key struct {
	OSType  models.OSType
	Version string
}

// FetchFunc retrieves the advisories for a key
type FetchFunc func(ctx context.Context, key Key) ([]models.Advisory, error)

type entry struct {
	done       chan struct{} // closed once advisories/err are set
	advisories []models.Advisory
	err        error
}

// RunCache memoizes advisory lookups for the duration of one correlation run.
// Each key is fetched at most once, even under concurrent callers; failures
// are cached as an empty list together with the error.
type RunCache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	fetches atomic.Int64
}

// NewRunCache creates an empty run cache
func NewRunCache() *RunCache {
	return &RunCache{entries: make(map[Key]*entry)}
}

// Get returns the advisories for key, calling fetch only if no other caller
// has done so yet. Concurrent callers for the same key wait for the first
// fetch to finish. hit is false only for the caller that performed the fetch.
func (c *RunCache) Get(ctx context.Context, key Key, fetch FetchFunc) (advisories []models.Advisory, hit bool, err error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.mu.Unlock()
		<-e.done
		return e.advisories, true, e.err
	}
	e = &entry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	c.fetches.Add(1)
	defer close(e.done)

	e.advisories, e.err = fetch(ctx, key)
	if e.err != nil || e.advisories == nil {
		e.advisories = []models.Advisory{}
	}
	return e.advisories, false, e.err
}

// Lookup returns a completed entry without fetching or waiting
func (c *RunCache) Lookup(key Key) ([]models.Advisory, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	select {
	case <-e.done:
		return e.advisories, true
	default:
		return nil, false
	}
}

// Err returns the error recorded for a completed key
func (c *RunCache) Err(key Key) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

// Len returns the number of keys seen
func (c *RunCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetches returns how many fetches were performed
func (c *RunCache) Fetches() int64 {
	return c.fetches.Load()
}

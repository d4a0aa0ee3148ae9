// Package memcache provides an in-memory implementation of storage.Cache
// for testing and lightweight deployments. Entries are lost when the
// process restarts. Expiry is checked lazily on read, so an expired entry
// occupies memory until it is next touched or evicted.
package memcache

import (
	"container/list"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leaseway/leaseway/pkg/storage"
)

// entry holds a cached value and its lifetime.
type entry struct {
	value     []byte
	metadata  map[string]string
	expiresAt time.Time // zero = never expires
	fifoElem  *list.Element
}

// Cache is an in-memory storage.Cache with optional FIFO eviction.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	fifo       *list.List // front = newest, back = oldest
	defaultTTL time.Duration
	maxEntries int // 0 = unlimited

	// now is replaceable in tests to control expiry.
	now func() time.Time
}

// Ensure Cache implements storage.Cache at compile time.
var _ storage.Cache = (*Cache)(nil)

// New creates an empty in-memory cache. If cfg.MaxEntries > 0, the oldest
// entry is evicted when the limit is reached.
func New(cfg storage.CacheConfig) *Cache {
	return &Cache{
		entries:    make(map[string]*entry),
		fifo:       list.New(),
		defaultTTL: cfg.DefaultTTL,
		maxEntries: cfg.MaxEntries,
		now:        time.Now,
	}
}

// Register registers this adapter under the provider name "memory".
func Register(r *storage.Registry) {
	r.RegisterCache("memory", func(_ context.Context, cfg storage.CacheConfig) (storage.Cache, error) {
		return New(cfg), nil
	})
}

// Get returns the value for key, or nil and false if the key is absent or
// expired.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.live(key)
	if e == nil {
		return nil, false, nil
	}
	return e.value, true, nil
}

// GetWithMetadata returns the entry with its metadata, or nil when absent
// or expired.
func (c *Cache) GetWithMetadata(_ context.Context, key string) (*storage.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.live(key)
	if e == nil {
		return nil, nil
	}
	return &storage.CacheEntry{Value: e.value, Metadata: e.metadata}, nil
}

// Put stores value under key. TTL wins over ExpiresAt when both are set;
// with neither, the cache's default TTL applies.
func (c *Cache) Put(_ context.Context, key string, value []byte, opts storage.CachePutOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	switch {
	case opts.TTL > 0:
		expiresAt = c.now().Add(opts.TTL)
	case !opts.ExpiresAt.IsZero():
		expiresAt = opts.ExpiresAt
	case c.defaultTTL > 0:
		expiresAt = c.now().Add(c.defaultTTL)
	}

	if existing, ok := c.entries[key]; ok {
		c.fifo.Remove(existing.fifoElem)
	} else if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	elem := c.fifo.PushFront(key)
	c.entries[key] = &entry{
		value:     value,
		metadata:  opts.Metadata,
		expiresAt: expiresAt,
		fifoElem:  elem,
	}
	return nil
}

// Delete removes a key. Absent keys are a no-op.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.fifo.Remove(e.fifoElem)
		delete(c.entries, key)
	}
	return nil
}

// Has reports presence, distinguishing an absent key from a present key
// holding an empty value.
func (c *Cache) Has(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live(key) != nil, nil
}

// List pages through keys in lexicographic order. The cursor is the last
// key of the previous page; the next page starts strictly after it.
func (c *Cache) List(_ context.Context, opts storage.CacheListOptions) (*storage.CacheListPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.sortedLiveKeys(opts.Prefix, opts.Cursor)

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	page := &storage.CacheListPage{Complete: true}
	for i, name := range keys {
		if i >= limit {
			page.Complete = false
			page.Cursor = page.Keys[len(page.Keys)-1].Name
			break
		}
		e := c.entries[name]
		k := storage.CacheKey{Name: name, Metadata: e.metadata}
		if !e.expiresAt.IsZero() {
			exp := e.expiresAt
			k.ExpiresAt = &exp
		}
		page.Keys = append(page.Keys, k)
	}
	return page, nil
}

// Close is a no-op for the in-memory cache. Idempotent.
func (c *Cache) Close() error {
	return nil
}

// live returns the entry for key if present and unexpired, dropping it if
// expired. Must be called with c.mu held for writing.
func (c *Cache) live(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.fifo.Remove(e.fifoElem)
		delete(c.entries, key)
		return nil
	}
	return e
}

// sortedLiveKeys collects unexpired keys matching prefix, strictly after
// cursor, sorted. Must be called with c.mu held for writing.
func (c *Cache) sortedLiveKeys(prefix, cursor string) []string {
	var keys []string
	for name := range c.entries {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if cursor != "" && name <= cursor {
			continue
		}
		if c.live(name) == nil {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// evictOldest removes the least recently written entry. Must be called
// with c.mu held.
func (c *Cache) evictOldest() {
	back := c.fifo.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	c.fifo.Remove(back)
	delete(c.entries, key)
}

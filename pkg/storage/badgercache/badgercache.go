// Package badgercache implements the storage.Cache capability on an
// embedded BadgerDB, using Badger's native per-entry TTL for expiry.
//
// Entries without metadata are stored as raw value bytes. Entries with
// metadata are stored as a JSON envelope, flagged through Badger's user
// meta byte so reads know which shape they are looking at.
package badgercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/leaseway/leaseway/pkg/storage"
)

// metaEnvelope flags a value stored as a JSON envelope carrying metadata.
const metaEnvelope byte = 1

// envelope is the stored shape for entries that carry metadata.
type envelope struct {
	Metadata map[string]string `json:"m"`
	Value    []byte            `json:"v"`
}

// Cache is a BadgerDB-backed storage.Cache.
type Cache struct {
	db         *badger.DB
	defaultTTL time.Duration
	ownsDB     bool
	closed     atomic.Bool
}

// Ensure Cache implements storage.Cache at compile time.
var _ storage.Cache = (*Cache)(nil)

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// New opens a BadgerDB database per cfg. With cfg.InMemory the database
// never touches disk; otherwise cfg.Path is created if missing.
func New(cfg storage.CacheConfig) (*Cache, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, &storage.ConfigurationError{Capability: "cache", Provider: "badger", Reason: "path is required unless in_memory is set"}
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}

	return &Cache{db: db, defaultTTL: cfg.DefaultTTL, ownsDB: true}, nil
}

// FromDB wraps a caller-owned BadgerDB handle without taking ownership:
// Close on the returned Cache does not close the database. This is the
// normalization path for call sites that still hold a raw handle.
func FromDB(db *badger.DB) *Cache {
	return &Cache{db: db}
}

// Register registers this adapter under the provider name "badger".
func Register(r *storage.Registry) {
	r.RegisterCache("badger", func(_ context.Context, cfg storage.CacheConfig) (storage.Cache, error) {
		return New(cfg)
	})
}

// Get returns the value for key, or nil and false if absent or expired.
// Badger drops expired entries on read, so no expiry check is needed here.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, err := c.read(key)
	if err != nil {
		return nil, false, err
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// GetWithMetadata returns the entry with its metadata, or nil when absent
// or expired.
func (c *Cache) GetWithMetadata(_ context.Context, key string) (*storage.CacheEntry, error) {
	return c.read(key)
}

// Put stores value under key. TTL wins over ExpiresAt when both are set;
// with neither, the cache's default TTL applies. An ExpiresAt already in
// the past stores nothing and drops any existing entry.
func (c *Cache) Put(_ context.Context, key string, value []byte, opts storage.CachePutOptions) error {
	ttl, expired := resolveTTL(opts, c.defaultTTL, time.Now())
	if expired {
		return c.Delete(context.Background(), key)
	}

	data := value
	meta := byte(0)
	if len(opts.Metadata) > 0 {
		encoded, err := json.Marshal(envelope{Metadata: opts.Metadata, Value: value})
		if err != nil {
			return fmt.Errorf("encoding cache entry: %w", err)
		}
		data = encoded
		meta = metaEnvelope
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data).WithMeta(meta)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a key. Absent keys are a no-op.
func (c *Cache) Delete(_ context.Context, key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Has reports presence without reading the value.
func (c *Cache) Has(_ context.Context, key string) (bool, error) {
	var found bool
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// List pages through keys in lexicographic order. The cursor is the last
// key of the previous page; the next page resumes strictly after it.
// Listing is weakly consistent with concurrent writers.
func (c *Cache) List(_ context.Context, opts storage.CacheListOptions) (*storage.CacheListPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	page := &storage.CacheListPage{Complete: true}
	err := c.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(opts.Prefix)
		iterOpts.PrefetchValues = false
		iter := txn.NewIterator(iterOpts)
		defer iter.Close()

		seek := []byte(opts.Prefix)
		if opts.Cursor != "" {
			// Resume just past the cursor key.
			seek = append([]byte(opts.Cursor), 0)
		}

		for iter.Seek(seek); iter.Valid(); iter.Next() {
			if len(page.Keys) >= limit {
				page.Complete = false
				page.Cursor = page.Keys[len(page.Keys)-1].Name
				return nil
			}

			item := iter.Item()
			k := storage.CacheKey{Name: string(item.Key())}
			if exp := item.ExpiresAt(); exp > 0 {
				t := time.Unix(int64(exp), 0)
				k.ExpiresAt = &t
			}
			if item.UserMeta() == metaEnvelope {
				var env envelope
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &env)
				}); err != nil {
					return fmt.Errorf("decoding cache entry %s: %w", k.Name, err)
				}
				k.Metadata = env.Metadata
			}
			page.Keys = append(page.Keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Close closes the database when this adapter owns it. Idempotent, and a
// no-op for FromDB-wrapped handles.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}

// read fetches and decodes one entry, nil when absent or expired.
func (c *Cache) read(key string) (*storage.CacheEntry, error) {
	var entry *storage.CacheEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if item.UserMeta() == metaEnvelope {
				var env envelope
				if err := json.Unmarshal(val, &env); err != nil {
					return fmt.Errorf("decoding cache entry %s: %w", key, err)
				}
				entry = &storage.CacheEntry{Value: env.Value, Metadata: env.Metadata}
				return nil
			}
			value := make([]byte, len(val))
			copy(value, val)
			entry = &storage.CacheEntry{Value: value}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// resolveTTL applies the documented precedence: TTL wins over ExpiresAt,
// and the default applies when neither is set. expired is true when an
// absolute expiration has already passed.
func resolveTTL(opts storage.CachePutOptions, defaultTTL time.Duration, now time.Time) (ttl time.Duration, expired bool) {
	switch {
	case opts.TTL > 0:
		return opts.TTL, false
	case !opts.ExpiresAt.IsZero():
		d := opts.ExpiresAt.Sub(now)
		if d <= 0 {
			return 0, true
		}
		return d, false
	default:
		return defaultTTL, false
	}
}

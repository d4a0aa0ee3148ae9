// Package memobj provides an in-memory implementation of
// storage.ObjectStore for testing and lightweight deployments. Objects
// are lost when the process restarts.
//
// SignedURL has no signing capability: it returns a stable public URL
// when PublicURLBase is configured, and storage.ErrSigningUnsupported
// otherwise.
package memobj

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leaseway/leaseway/pkg/storage"
)

// object holds stored data and its metadata.
type object struct {
	data     []byte
	meta     storage.ObjectMetadata
	fifoElem *list.Element
}

// Store is an in-memory storage.ObjectStore with optional FIFO eviction.
type Store struct {
	mu            sync.RWMutex
	objects       map[string]*object
	fifo          *list.List // front = newest, back = oldest
	maxObjects    int        // 0 = unlimited
	publicURLBase string

	// now is replaceable in tests.
	now func() time.Time
}

// Ensure Store implements storage.ObjectStore at compile time.
var _ storage.ObjectStore = (*Store)(nil)

// New creates an empty in-memory object store. If cfg.MaxObjects > 0, the
// oldest object is evicted when the limit is reached.
func New(cfg storage.ObjectStoreConfig) *Store {
	return &Store{
		objects:       make(map[string]*object),
		fifo:          list.New(),
		maxObjects:    cfg.MaxObjects,
		publicURLBase: strings.TrimSuffix(cfg.PublicURLBase, "/"),
		now:           time.Now,
	}
}

// Register registers this adapter under the provider name "memory".
func Register(r *storage.Registry) {
	r.RegisterObjectStore("memory", func(_ context.Context, cfg storage.ObjectStoreConfig) (storage.ObjectStore, error) {
		return New(cfg), nil
	})
}

// Put stores data under key, overwriting any existing object.
func (s *Store) Put(_ context.Context, key string, data []byte, opts storage.ObjectPutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)

	s.store(key, &object{
		data: stored,
		meta: storage.ObjectMetadata{
			ContentType:        opts.ContentType,
			ContentLength:      int64(len(stored)),
			ETag:               etag(stored),
			LastModified:       s.now(),
			CacheControl:       opts.CacheControl,
			ContentDisposition: opts.ContentDisposition,
			ContentEncoding:    opts.ContentEncoding,
			Custom:             opts.Custom,
		},
	})
	return nil
}

// store inserts o under key, evicting the oldest object when the cap is
// reached. Must be called with s.mu held.
func (s *Store) store(key string, o *object) {
	if existing, ok := s.objects[key]; ok {
		s.fifo.Remove(existing.fifoElem)
	} else if s.maxObjects > 0 && len(s.objects) >= s.maxObjects {
		s.evictOldest()
	}
	o.fifoElem = s.fifo.PushFront(key)
	s.objects[key] = o
}

// evictOldest removes the least recently written object. Must be called
// with s.mu held.
func (s *Store) evictOldest() {
	back := s.fifo.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	s.fifo.Remove(back)
	delete(s.objects, key)
}

// Get returns the object, or nil when the key is absent.
func (s *Store) Get(_ context.Context, key string) (*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	data := make([]byte, len(o.data))
	copy(data, o.data)
	return &storage.Object{Data: data, Metadata: o.meta}, nil
}

// Head returns the object's metadata, or nil when the key is absent.
func (s *Store) Head(_ context.Context, key string) (*storage.ObjectMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	meta := o.meta
	return &meta, nil
}

// Delete removes an object. Absent keys are a no-op.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(key)
	return nil
}

// DeleteMany removes several objects, continuing past absent keys.
func (s *Store) DeleteMany(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.remove(key)
	}
	return nil
}

// remove drops one object and its eviction-list entry. Must be called
// with s.mu held.
func (s *Store) remove(key string) {
	if o, ok := s.objects[key]; ok {
		s.fifo.Remove(o.fifoElem)
		delete(s.objects, key)
	}
}

// Exists reports whether an object is stored under key.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// List pages through objects in key order, rolling keys past the
// delimiter up into DelimitedPrefixes.
func (s *Store) List(_ context.Context, opts storage.ObjectListOptions) (*storage.ObjectListPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.objects {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		if opts.Cursor != "" && key <= opts.Cursor {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	page := storage.PageObjects(keys, opts, func(key string) storage.ObjectEntry {
		o := s.objects[key]
		return storage.ObjectEntry{
			Key:          key,
			Size:         o.meta.ContentLength,
			ETag:         o.meta.ETag,
			LastModified: o.meta.LastModified,
		}
	})
	return page, nil
}

// SignedURL returns a public URL when a base is configured. The memory
// backend cannot sign, so without a configured base this fails rather
// than inventing an unsigned URL.
func (s *Store) SignedURL(_ context.Context, key string, _ storage.SignOptions) (string, error) {
	if s.publicURLBase == "" {
		return "", storage.ErrSigningUnsupported
	}
	return s.publicURLBase + "/" + key, nil
}

// Copy duplicates srcKey to dstKey, preserving the source's metadata.
func (s *Store) Copy(_ context.Context, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.objects[srcKey]
	if !ok {
		return storage.ErrSourceNotFound
	}
	data := make([]byte, len(src.data))
	copy(data, src.data)
	meta := src.meta
	meta.LastModified = s.now()
	s.store(dstKey, &object{data: data, meta: meta})
	return nil
}

// Close is a no-op for the in-memory store. Idempotent.
func (s *Store) Close() error {
	return nil
}

func etag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

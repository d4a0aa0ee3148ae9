// Package natsobj implements the storage.ObjectStore capability on a NATS
// JetStream ObjectStore bucket.
//
// JetStream has no native time-limited URL signing. SignedURL therefore
// has three explicitly configured modes: with a SigningSecret it returns
// an HMAC-signed expiring URL under PublicURLBase, with only a
// PublicURLBase it returns a stable public URL, and with neither it
// returns storage.ErrSigningUnsupported.
package natsobj

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/leaseway/leaseway/pkg/storage"
)

// Store is a JetStream-backed storage.ObjectStore.
type Store struct {
	obs    jetstream.ObjectStore
	nc     *nats.Conn // nil for FromObjectStore-wrapped handles
	signer *urlSigner
	closed atomic.Bool
}

// Ensure Store implements storage.ObjectStore at compile time.
var _ storage.ObjectStore = (*Store)(nil)

// New connects to the NATS server named by cfg.URL and binds the bucket,
// creating it if missing.
func New(ctx context.Context, cfg storage.ObjectStoreConfig) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, &storage.ConfigurationError{Capability: "objectstore", Provider: "nats", Reason: "bucket is required"}
	}

	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, nats.Name("leaseway-objectstore"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	obs, err := js.ObjectStore(ctx, cfg.Bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		obs, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{Bucket: cfg.Bucket})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("binding object store bucket %q: %w", cfg.Bucket, err)
	}

	return &Store{obs: obs, nc: nc, signer: newURLSigner(cfg)}, nil
}

// FromObjectStore wraps a caller-owned JetStream ObjectStore handle
// without taking ownership of its connection. This is the normalization
// path for call sites that still hold a raw handle; such a store has no
// signing configuration and SignedURL fails with ErrSigningUnsupported.
func FromObjectStore(obs jetstream.ObjectStore) *Store {
	return &Store{obs: obs, signer: newURLSigner(storage.ObjectStoreConfig{})}
}

// Register registers this adapter under the provider name "nats".
func Register(r *storage.Registry) {
	r.RegisterObjectStore("nats", func(ctx context.Context, cfg storage.ObjectStoreConfig) (storage.ObjectStore, error) {
		return New(ctx, cfg)
	})
}

// Header names used to carry standard object metadata.
const (
	headerContentType        = "Content-Type"
	headerCacheControl       = "Cache-Control"
	headerContentDisposition = "Content-Disposition"
	headerContentEncoding    = "Content-Encoding"
)

// Put stores data under key, overwriting any existing object.
func (s *Store) Put(ctx context.Context, key string, data []byte, opts storage.ObjectPutOptions) error {
	meta := jetstream.ObjectMeta{Name: key, Metadata: opts.Custom}

	headers := nats.Header{}
	setHeader(headers, headerContentType, opts.ContentType)
	setHeader(headers, headerCacheControl, opts.CacheControl)
	setHeader(headers, headerContentDisposition, opts.ContentDisposition)
	setHeader(headers, headerContentEncoding, opts.ContentEncoding)
	if len(headers) > 0 {
		meta.Headers = headers
	}

	if _, err := s.obs.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("putting object %q: %w", key, err)
	}
	return nil
}

// Get returns the object, or nil when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (*storage.Object, error) {
	info, err := s.obs.GetInfo(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting object info %q: %w", key, err)
	}

	data, err := s.obs.GetBytes(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting object %q: %w", key, err)
	}

	return &storage.Object{Data: data, Metadata: metadataFromInfo(info)}, nil
}

// Head returns the object's metadata, or nil when the key is absent. The
// metadata is derived from the same ObjectInfo Get uses, so Head and Get
// agree for the same object version.
func (s *Store) Head(ctx context.Context, key string) (*storage.ObjectMetadata, error) {
	info, err := s.obs.GetInfo(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting object info %q: %w", key, err)
	}
	meta := metadataFromInfo(info)
	return &meta, nil
}

// Delete removes an object. Absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.obs.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting object %q: %w", key, err)
	}
	return nil
}

// DeleteMany removes several objects, continuing past absent keys.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether an object is stored under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.obs.GetInfo(ctx, key)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting object info %q: %w", key, err)
	}
	return true, nil
}

// List pages through objects in key order, rolling keys past the
// delimiter up into DelimitedPrefixes. JetStream returns the full bucket
// listing, so pagination is applied client-side; the listing is weakly
// consistent with concurrent writers.
func (s *Store) List(ctx context.Context, opts storage.ObjectListOptions) (*storage.ObjectListPage, error) {
	infos, err := s.obs.List(ctx)
	if errors.Is(err, jetstream.ErrNoObjectsFound) {
		return &storage.ObjectListPage{Complete: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}

	byKey := make(map[string]*jetstream.ObjectInfo, len(infos))
	var keys []string
	for _, info := range infos {
		if !strings.HasPrefix(info.Name, opts.Prefix) {
			continue
		}
		if opts.Cursor != "" && info.Name <= opts.Cursor {
			continue
		}
		byKey[info.Name] = info
		keys = append(keys, info.Name)
	}
	sort.Strings(keys)

	page := storage.PageObjects(keys, opts, func(key string) storage.ObjectEntry {
		info := byKey[key]
		return storage.ObjectEntry{
			Key:          key,
			Size:         int64(info.Size),
			ETag:         info.Digest,
			LastModified: info.ModTime,
		}
	})
	return page, nil
}

// SignedURL builds a URL for the object per the configured signing mode.
func (s *Store) SignedURL(_ context.Context, key string, opts storage.SignOptions) (string, error) {
	return s.signer.sign(key, opts)
}

// Copy duplicates srcKey to dstKey, preserving the source's metadata. A
// missing source returns storage.ErrSourceNotFound and writes nothing.
func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	info, err := s.obs.GetInfo(ctx, srcKey)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return storage.ErrSourceNotFound
	}
	if err != nil {
		return fmt.Errorf("getting object info %q: %w", srcKey, err)
	}

	data, err := s.obs.GetBytes(ctx, srcKey)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return storage.ErrSourceNotFound
	}
	if err != nil {
		return fmt.Errorf("getting object %q: %w", srcKey, err)
	}

	meta := info.ObjectMeta
	meta.Name = dstKey
	if _, err := s.obs.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("putting object %q: %w", dstKey, err)
	}
	return nil
}

// Close drains the NATS connection when this adapter owns it. Idempotent,
// and a no-op for FromObjectStore-wrapped handles.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}

// metadataFromInfo maps a JetStream ObjectInfo onto the capability's
// metadata shape. The bucket digest serves as the etag.
func metadataFromInfo(info *jetstream.ObjectInfo) storage.ObjectMetadata {
	meta := storage.ObjectMetadata{
		ContentLength: int64(info.Size),
		ETag:          info.Digest,
		LastModified:  info.ModTime,
		Custom:        info.Metadata,
	}
	if info.Headers != nil {
		meta.ContentType = info.Headers.Get(headerContentType)
		meta.CacheControl = info.Headers.Get(headerCacheControl)
		meta.ContentDisposition = info.Headers.Get(headerContentDisposition)
		meta.ContentEncoding = info.Headers.Get(headerContentEncoding)
	}
	return meta
}

func setHeader(h nats.Header, name, value string) {
	if value != "" {
		h.Set(http.CanonicalHeaderKey(name), value)
	}
}

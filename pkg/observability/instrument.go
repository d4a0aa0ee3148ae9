package observability

import (
	"context"
	"time"

	"github.com/leaseway/leaseway/pkg/storage"
)

// InstrumentDatabase wraps db so every operation is counted and timed
// under the given provider label. Statements issued inside a Transaction
// callback are recorded as part of the single "transaction" operation.
func InstrumentDatabase(db storage.Database, provider string) storage.Database {
	return &instrumentedDatabase{inner: db, provider: provider}
}

// InstrumentCache wraps c so every operation is counted and timed, with
// hit/miss counters on reads.
func InstrumentCache(c storage.Cache, provider string) storage.Cache {
	return &instrumentedCache{inner: c, provider: provider}
}

// InstrumentObjectStore wraps o so every operation is counted and timed.
func InstrumentObjectStore(o storage.ObjectStore, provider string) storage.ObjectStore {
	return &instrumentedObjectStore{inner: o, provider: provider}
}

// observe records one completed operation.
func observe(capability, provider, operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StorageOpsTotal.WithLabelValues(capability, provider, operation, status).Inc()
	StorageOpDuration.WithLabelValues(capability, provider, operation).Observe(time.Since(start).Seconds())
}

type instrumentedDatabase struct {
	inner    storage.Database
	provider string
}

var _ storage.Database = (*instrumentedDatabase)(nil)

func (d *instrumentedDatabase) Query(ctx context.Context, sql string, args ...any) ([]storage.Row, error) {
	start := time.Now()
	rows, err := d.inner.Query(ctx, sql, args...)
	observe("database", d.provider, "query", start, err)
	return rows, err
}

func (d *instrumentedDatabase) QueryOne(ctx context.Context, sql string, args ...any) (storage.Row, error) {
	start := time.Now()
	row, err := d.inner.QueryOne(ctx, sql, args...)
	observe("database", d.provider, "query_one", start, err)
	return row, err
}

func (d *instrumentedDatabase) Execute(ctx context.Context, sql string, args ...any) (*storage.ExecuteResult, error) {
	start := time.Now()
	res, err := d.inner.Execute(ctx, sql, args...)
	observe("database", d.provider, "execute", start, err)
	return res, err
}

func (d *instrumentedDatabase) Transaction(ctx context.Context, fn func(storage.Session) error) error {
	start := time.Now()
	err := d.inner.Transaction(ctx, fn)
	observe("database", d.provider, "transaction", start, err)
	return err
}

func (d *instrumentedDatabase) Batch(ctx context.Context, stmts []storage.Statement) ([]storage.ExecuteResult, error) {
	start := time.Now()
	results, err := d.inner.Batch(ctx, stmts)
	observe("database", d.provider, "batch", start, err)
	return results, err
}

func (d *instrumentedDatabase) Close() error {
	return d.inner.Close()
}

type instrumentedCache struct {
	inner    storage.Cache
	provider string
}

var _ storage.Cache = (*instrumentedCache)(nil)

func (c *instrumentedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	observe("cache", c.provider, "get", start, err)
	if err == nil {
		c.countHit(ok)
	}
	return value, ok, err
}

func (c *instrumentedCache) GetWithMetadata(ctx context.Context, key string) (*storage.CacheEntry, error) {
	start := time.Now()
	entry, err := c.inner.GetWithMetadata(ctx, key)
	observe("cache", c.provider, "get_with_metadata", start, err)
	if err == nil {
		c.countHit(entry != nil)
	}
	return entry, err
}

func (c *instrumentedCache) Put(ctx context.Context, key string, value []byte, opts storage.CachePutOptions) error {
	start := time.Now()
	err := c.inner.Put(ctx, key, value, opts)
	observe("cache", c.provider, "put", start, err)
	return err
}

func (c *instrumentedCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := c.inner.Delete(ctx, key)
	observe("cache", c.provider, "delete", start, err)
	return err
}

func (c *instrumentedCache) List(ctx context.Context, opts storage.CacheListOptions) (*storage.CacheListPage, error) {
	start := time.Now()
	page, err := c.inner.List(ctx, opts)
	observe("cache", c.provider, "list", start, err)
	return page, err
}

func (c *instrumentedCache) Has(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := c.inner.Has(ctx, key)
	observe("cache", c.provider, "has", start, err)
	return ok, err
}

func (c *instrumentedCache) Close() error {
	return c.inner.Close()
}

func (c *instrumentedCache) countHit(hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(c.provider).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(c.provider).Inc()
	}
}

type instrumentedObjectStore struct {
	inner    storage.ObjectStore
	provider string
}

var _ storage.ObjectStore = (*instrumentedObjectStore)(nil)

func (o *instrumentedObjectStore) Put(ctx context.Context, key string, data []byte, opts storage.ObjectPutOptions) error {
	start := time.Now()
	err := o.inner.Put(ctx, key, data, opts)
	observe("objectstore", o.provider, "put", start, err)
	return err
}

func (o *instrumentedObjectStore) Get(ctx context.Context, key string) (*storage.Object, error) {
	start := time.Now()
	obj, err := o.inner.Get(ctx, key)
	observe("objectstore", o.provider, "get", start, err)
	return obj, err
}

func (o *instrumentedObjectStore) Head(ctx context.Context, key string) (*storage.ObjectMetadata, error) {
	start := time.Now()
	meta, err := o.inner.Head(ctx, key)
	observe("objectstore", o.provider, "head", start, err)
	return meta, err
}

func (o *instrumentedObjectStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := o.inner.Delete(ctx, key)
	observe("objectstore", o.provider, "delete", start, err)
	return err
}

func (o *instrumentedObjectStore) DeleteMany(ctx context.Context, keys []string) error {
	start := time.Now()
	err := o.inner.DeleteMany(ctx, keys)
	observe("objectstore", o.provider, "delete_many", start, err)
	return err
}

func (o *instrumentedObjectStore) List(ctx context.Context, opts storage.ObjectListOptions) (*storage.ObjectListPage, error) {
	start := time.Now()
	page, err := o.inner.List(ctx, opts)
	observe("objectstore", o.provider, "list", start, err)
	return page, err
}

func (o *instrumentedObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := o.inner.Exists(ctx, key)
	observe("objectstore", o.provider, "exists", start, err)
	return ok, err
}

func (o *instrumentedObjectStore) SignedURL(ctx context.Context, key string, opts storage.SignOptions) (string, error) {
	start := time.Now()
	url, err := o.inner.SignedURL(ctx, key, opts)
	observe("objectstore", o.provider, "signed_url", start, err)
	return url, err
}

func (o *instrumentedObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	start := time.Now()
	err := o.inner.Copy(ctx, srcKey, dstKey)
	observe("objectstore", o.provider, "copy", start, err)
	return err
}

func (o *instrumentedObjectStore) Close() error {
	return o.inner.Close()
}

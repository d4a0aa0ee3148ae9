package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/leaseway/leaseway/pkg/storage"
	"github.com/leaseway/leaseway/pkg/storage/memcache"
	"github.com/leaseway/leaseway/pkg/storage/memobj"
)

func TestInstrumentedCacheCountsHitsAndMisses(t *testing.T) {
	c := InstrumentCache(memcache.New(storage.CacheConfig{}), "test_hits")
	ctx := context.Background()

	if err := c.Put(ctx, "k", []byte("v"), storage.CachePutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	hitsBefore := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("test_hits"))
	missesBefore := testutil.ToFloat64(CacheMissesTotal.WithLabelValues("test_hits"))

	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit")
	}
	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Fatal("expected miss")
	}

	if got := testutil.ToFloat64(CacheHitsTotal.WithLabelValues("test_hits")) - hitsBefore; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CacheMissesTotal.WithLabelValues("test_hits")) - missesBefore; got != 1 {
		t.Errorf("misses delta = %v, want 1", got)
	}
}

func TestInstrumentedCacheCountsOps(t *testing.T) {
	c := InstrumentCache(memcache.New(storage.CacheConfig{}), "test_ops")
	ctx := context.Background()

	before := testutil.ToFloat64(StorageOpsTotal.WithLabelValues("cache", "test_ops", "put", "ok"))
	if err := c.Put(ctx, "k", []byte("v"), storage.CachePutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	after := testutil.ToFloat64(StorageOpsTotal.WithLabelValues("cache", "test_ops", "put", "ok"))
	if after-before != 1 {
		t.Errorf("put ok counter delta = %v, want 1", after-before)
	}
}

func TestInstrumentedObjectStoreCountsErrors(t *testing.T) {
	// SignedURL fails on an unconfigured memory store, exercising the
	// error status label.
	o := InstrumentObjectStore(memobj.New(storage.ObjectStoreConfig{}), "test_err")
	ctx := context.Background()

	before := testutil.ToFloat64(StorageOpsTotal.WithLabelValues("objectstore", "test_err", "signed_url", "error"))
	if _, err := o.SignedURL(ctx, "k", storage.SignOptions{}); err == nil {
		t.Fatal("expected SignedURL to fail without a public base")
	}
	after := testutil.ToFloat64(StorageOpsTotal.WithLabelValues("objectstore", "test_err", "signed_url", "error"))
	if after-before != 1 {
		t.Errorf("signed_url error counter delta = %v, want 1", after-before)
	}
}

func TestInstrumentedWrappersDelegate(t *testing.T) {
	inner := memobj.New(storage.ObjectStoreConfig{})
	o := InstrumentObjectStore(inner, "test_delegate")
	ctx := context.Background()

	if err := o.Put(ctx, "k", []byte("data"), storage.ObjectPutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	obj, err := o.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if obj == nil || string(obj.Data) != "data" {
		t.Errorf("Get through wrapper = %v, want stored object", obj)
	}
	if ok, _ := o.Exists(ctx, "k"); !ok {
		t.Error("Exists through wrapper = false, want true")
	}
}

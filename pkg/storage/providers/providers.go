// Package providers wires the built-in backend adapters into a storage
// registry and normalizes raw backend handles into capability instances.
//
// Registered provider names:
//
//	database:    "postgres"
//	cache:       "badger", "memory"
//	objectstore: "nats", "memory"
package providers

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/leaseway/leaseway/pkg/storage"
	"github.com/leaseway/leaseway/pkg/storage/badgercache"
	"github.com/leaseway/leaseway/pkg/storage/memcache"
	"github.com/leaseway/leaseway/pkg/storage/memobj"
	"github.com/leaseway/leaseway/pkg/storage/natsobj"
	"github.com/leaseway/leaseway/pkg/storage/postgres"
)

// Register registers every built-in adapter with the given registry.
// Callers that want to swap an adapter for a test double re-register the
// same name afterwards; last registration wins.
func Register(r *storage.Registry) {
	postgres.Register(r)
	badgercache.Register(r)
	memcache.Register(r)
	natsobj.Register(r)
	memobj.Register(r)
}

// NewRegistry returns a registry with every built-in adapter registered.
func NewRegistry() *storage.Registry {
	r := storage.NewRegistry()
	Register(r)
	return r
}

// AsDatabase normalizes v into a storage.Database. An instance that
// already satisfies the interface passes through unchanged; a raw
// *pgxpool.Pool is wrapped just-in-time with the same translation logic
// as the registered postgres adapter. The wrap is stateless and cheap, so
// call sites mid-migration can normalize on every use without caching.
func AsDatabase(v any) (storage.Database, error) {
	switch h := v.(type) {
	case storage.Database:
		return h, nil
	case *pgxpool.Pool:
		return postgres.FromPool(h), nil
	default:
		return nil, fmt.Errorf("cannot normalize %T into a storage.Database", v)
	}
}

// AsCache normalizes v into a storage.Cache: pass-through for capability
// instances, just-in-time wrap for a raw *badger.DB.
func AsCache(v any) (storage.Cache, error) {
	switch h := v.(type) {
	case storage.Cache:
		return h, nil
	case *badger.DB:
		return badgercache.FromDB(h), nil
	default:
		return nil, fmt.Errorf("cannot normalize %T into a storage.Cache", v)
	}
}

// AsObjectStore normalizes v into a storage.ObjectStore: pass-through for
// capability instances, just-in-time wrap for a raw JetStream handle.
func AsObjectStore(v any) (storage.ObjectStore, error) {
	switch h := v.(type) {
	case storage.ObjectStore:
		return h, nil
	case jetstream.ObjectStore:
		return natsobj.FromObjectStore(h), nil
	default:
		return nil, fmt.Errorf("cannot normalize %T into a storage.ObjectStore", v)
	}
}

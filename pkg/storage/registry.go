package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Constructor functions produce a capability instance from its
// configuration. Constructors are registered by provider name and invoked
// by the Registry's Open methods.
type (
	DatabaseConstructor    func(ctx context.Context, cfg DatabaseConfig) (Database, error)
	CacheConstructor       func(ctx context.Context, cfg CacheConfig) (Cache, error)
	ObjectStoreConstructor func(ctx context.Context, cfg ObjectStoreConfig) (ObjectStore, error)
)

// Registry maps provider names to capability constructors. It is built
// once at process start (see pkg/storage/providers) and passed down to
// whatever opens storage; there is no package-level instance, so tests
// get isolation by building their own.
//
// Registering a name twice overwrites the earlier entry. That is
// intentional: it lets a test double replace a production adapter under
// the same name.
type Registry struct {
	mu           sync.RWMutex
	databases    map[string]DatabaseConstructor
	caches       map[string]CacheConstructor
	objectStores map[string]ObjectStoreConstructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		databases:    make(map[string]DatabaseConstructor),
		caches:       make(map[string]CacheConstructor),
		objectStores: make(map[string]ObjectStoreConstructor),
	}
}

// RegisterDatabase registers a relational provider, replacing any prior
// registration under the same name.
func (r *Registry) RegisterDatabase(name string, build DatabaseConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.databases[name] = build
}

// RegisterCache registers a cache provider, replacing any prior
// registration under the same name.
func (r *Registry) RegisterCache(name string, build CacheConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches[name] = build
}

// RegisterObjectStore registers an object-store provider, replacing any
// prior registration under the same name.
func (r *Registry) RegisterObjectStore(name string, build ObjectStoreConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objectStores[name] = build
}

// OpenDatabase constructs the relational capability named by cfg.Provider.
// An unregistered provider is a *ConfigurationError; startup should treat
// it as fatal rather than continue without storage.
func (r *Registry) OpenDatabase(ctx context.Context, cfg DatabaseConfig) (Database, error) {
	r.mu.RLock()
	build, ok := r.databases[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{Capability: "database", Provider: cfg.Provider, Reason: "not registered"}
	}
	return build(ctx, cfg)
}

// OpenCache constructs the cache capability named by cfg.Provider.
func (r *Registry) OpenCache(ctx context.Context, cfg CacheConfig) (Cache, error) {
	r.mu.RLock()
	build, ok := r.caches[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{Capability: "cache", Provider: cfg.Provider, Reason: "not registered"}
	}
	return build(ctx, cfg)
}

// OpenObjectStore constructs the object-store capability named by
// cfg.Provider.
func (r *Registry) OpenObjectStore(ctx context.Context, cfg ObjectStoreConfig) (ObjectStore, error) {
	r.mu.RLock()
	build, ok := r.objectStores[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{Capability: "objectstore", Provider: cfg.Provider, Reason: "not registered"}
	}
	return build(ctx, cfg)
}

// Provider bundles the capability instances opened from one Config.
// Fields for absent sub-configs are nil.
type Provider struct {
	Database    Database
	Cache       Cache
	ObjectStore ObjectStore
}

// Open constructs every capability present in cfg. On failure, anything
// already opened is closed before the error is returned, so a failed Open
// never leaks a half-built provider.
func (r *Registry) Open(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}

	if cfg.Database != nil {
		db, err := r.OpenDatabase(ctx, *cfg.Database)
		if err != nil {
			return nil, err
		}
		p.Database = db
	}

	if cfg.Cache != nil {
		c, err := r.OpenCache(ctx, *cfg.Cache)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Cache = c
	}

	if cfg.ObjectStore != nil {
		o, err := r.OpenObjectStore(ctx, *cfg.ObjectStore)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.ObjectStore = o
	}

	return p, nil
}

// Close closes every opened capability. Idempotent.
func (p *Provider) Close() error {
	var errs []error
	if p.Database != nil {
		errs = append(errs, p.Database.Close())
		p.Database = nil
	}
	if p.Cache != nil {
		errs = append(errs, p.Cache.Close())
		p.Cache = nil
	}
	if p.ObjectStore != nil {
		errs = append(errs, p.ObjectStore.Close())
		p.ObjectStore = nil
	}
	return errors.Join(errs...)
}

// Snapshot lists the registered provider names per capability, sorted.
type Snapshot struct {
	Databases    []string
	Caches       []string
	ObjectStores []string
}

// Providers returns a read-only snapshot of registered names, for startup
// logging and diagnostics.
func (r *Registry) Providers() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Databases:    make([]string, 0, len(r.databases)),
		Caches:       make([]string, 0, len(r.caches)),
		ObjectStores: make([]string, 0, len(r.objectStores)),
	}
	for name := range r.databases {
		snap.Databases = append(snap.Databases, name)
	}
	for name := range r.caches {
		snap.Caches = append(snap.Caches, name)
	}
	for name := range r.objectStores {
		snap.ObjectStores = append(snap.ObjectStores, name)
	}
	sort.Strings(snap.Databases)
	sort.Strings(snap.Caches)
	sort.Strings(snap.ObjectStores)
	return snap
}

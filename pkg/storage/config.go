package storage

import "time"

// DatabaseConfig selects and parameterizes a relational provider. Fields
// beyond Provider are a union of what the registered adapters consume;
// each adapter reads the ones it understands and ignores the rest.
type DatabaseConfig struct {
	// Provider names a constructor registered for the relational
	// capability, e.g. "postgres".
	Provider string `yaml:"provider"`

	// DSN is the backend connection string.
	DSN     string `yaml:"dsn"`
	DSNFile string `yaml:"dsn_file"` // _file variant for dsn

	MaxConns        int32         `yaml:"max_conns"`         // default: 25
	MinConns        int32         `yaml:"min_conns"`         // default: 5
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"` // default: 5m

	// MigrateOnStart applies schema migrations when the adapter opens.
	MigrateOnStart bool `yaml:"migrate_on_start"`
}

// CacheConfig selects and parameterizes a cache provider.
type CacheConfig struct {
	// Provider names a constructor registered for the cache capability,
	// e.g. "badger" or "memory".
	Provider string `yaml:"provider"`

	// DefaultTTL applies to puts that set neither TTL nor ExpiresAt.
	// Zero means entries do not expire.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// Path is the on-disk directory for embedded backends.
	Path string `yaml:"path"`

	// InMemory runs an embedded backend without touching disk.
	InMemory bool `yaml:"in_memory"`

	// MaxEntries caps the memory provider (0 = unlimited).
	MaxEntries int `yaml:"max_entries"`
}

// ObjectStoreConfig selects and parameterizes an object-store provider.
type ObjectStoreConfig struct {
	// Provider names a constructor registered for the object-store
	// capability, e.g. "nats" or "memory".
	Provider string `yaml:"provider"`

	// URL is the backend server address (NATS URL for the nats provider).
	URL string `yaml:"url"`

	// Bucket is the object bucket name.
	Bucket string `yaml:"bucket"`

	// PublicURLBase, when set, lets SignedURL build URLs for backends
	// without native signing. Setting it is an explicit opt-in to
	// non-expiring public URLs unless SigningSecret is also set.
	PublicURLBase string `yaml:"public_url_base"`

	// SigningSecret enables HMAC-signed expiring URLs on top of
	// PublicURLBase.
	SigningSecret     string `yaml:"signing_secret"`
	SigningSecretFile string `yaml:"signing_secret_file"` // _file variant

	// MaxObjects caps the memory provider (0 = unlimited).
	MaxObjects int `yaml:"max_objects"`
}

// Config bundles the three optional capability configurations. Absent
// sub-configs simply mean that capability is not opened.
type Config struct {
	Database    *DatabaseConfig    `yaml:"database"`
	Cache       *CacheConfig       `yaml:"cache"`
	ObjectStore *ObjectStoreConfig `yaml:"object_store"`
}

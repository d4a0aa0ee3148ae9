package storage

import "context"

// Session is the statement-execution surface shared by a Database and the
// scoped handle passed to a Transaction callback. Statements use the
// backend's positional placeholders; argument counts are not checked at
// this boundary, a mismatch surfaces as a *QueryError or *ExecuteError
// at execution time.
type Session interface {
	// Query runs a read-only statement and returns all rows in the order
	// the backend produced them. It must not be used for mutating
	// statements.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// QueryOne returns the first row, or nil with a nil error when the
	// statement matches no rows.
	QueryOne(ctx context.Context, sql string, args ...any) (Row, error)

	// Execute runs an insert, update, or delete. Invalid SQL or a hard
	// backend rejection returns a *ExecuteError; transient conflicts the
	// caller may want to inspect come back as a result with
	// Outcome == OutcomeConflict and Success == false.
	Execute(ctx context.Context, sql string, args ...any) (*ExecuteResult, error)
}

// Database is the relational storage capability.
type Database interface {
	Session

	// Transaction runs fn with a Session scoped to a single transaction.
	// Whether the envelope is genuinely atomic is adapter-defined: the
	// postgres adapter uses a real BEGIN/COMMIT/ROLLBACK, while adapters
	// for backends without multi-statement transactions may only emulate
	// the scope. Each adapter documents which semantics it provides.
	Transaction(ctx context.Context, fn func(Session) error) error

	// Batch executes a fixed ordered list of statements and returns one
	// result per statement in the same order. Ordering is guaranteed;
	// atomicity and isolation from concurrent writers are not, unless the
	// adapter documents otherwise.
	Batch(ctx context.Context, stmts []Statement) ([]ExecuteResult, error)

	// Close releases backend resources. Idempotent.
	Close() error
}

// Cache is the ephemeral key/value capability. Entries may carry a TTL or
// an absolute expiration set at put time; reads after expiry behave as
// absent. Expiry is the only signal, there are no eviction callbacks.
type Cache interface {
	// Get returns the value and true, or nil and false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// GetWithMetadata returns the entry with its metadata, or nil when
	// the key is absent or expired.
	GetWithMetadata(ctx context.Context, key string) (*CacheEntry, error)

	// Put stores value under key. When both TTL and ExpiresAt are set in
	// opts, TTL wins.
	Put(ctx context.Context, key string, value []byte, opts CachePutOptions) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List pages through keys. The listing is weakly consistent: cursors
	// reproduce disjoint continuations, but concurrent mutation during a
	// walk may be reflected partially.
	List(ctx context.Context, opts CacheListOptions) (*CacheListPage, error)

	// Has reports key presence. It distinguishes an absent key from a
	// present key holding an empty value.
	Has(ctx context.Context, key string) (bool, error)

	// Close releases backend resources. Idempotent.
	Close() error
}

// ObjectStore is the binary object storage capability. Keys form a flat
// namespace; hierarchical listing is emulated with prefixes and an
// optional delimiter.
type ObjectStore interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte, opts ObjectPutOptions) error

	// Get returns the object and its metadata, or nil when the key is
	// absent. Get and Head return identical metadata for the same object
	// version.
	Get(ctx context.Context, key string) (*Object, error)

	// Head returns the object's metadata without its data, or nil when
	// the key is absent.
	Head(ctx context.Context, key string) (*ObjectMetadata, error)

	// Delete removes an object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes several objects, continuing past absent keys.
	DeleteMany(ctx context.Context, keys []string) error

	// List pages through objects under an optional prefix, grouping keys
	// past a delimiter into DelimitedPrefixes.
	List(ctx context.Context, opts ObjectListOptions) (*ObjectListPage, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// SignedURL returns a time-limited URL for the object. Adapters whose
	// backend cannot sign URLs natively may fall back to a configured
	// public base URL, but only when explicitly configured to do so;
	// otherwise they return ErrSigningUnsupported.
	SignedURL(ctx context.Context, key string, opts SignOptions) (string, error)

	// Copy duplicates srcKey to dstKey, preserving the source's metadata.
	// A missing source returns ErrSourceNotFound and writes nothing.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Close releases backend resources. Idempotent.
	Close() error
}

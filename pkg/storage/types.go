package storage

import "time"

// Row is one result row keyed by column name.
type Row map[string]any

// Statement is one parameterized statement in a Batch.
type Statement struct {
	SQL  string
	Args []any
}

// Outcome classifies how Execute reported a mutating statement. Hard
// failures (malformed SQL, constraint the caller cannot do anything
// about) are returned as errors instead; Outcome only distinguishes the
// non-error channels.
type Outcome int

const (
	// OutcomeApplied means the statement ran and its effects are visible.
	OutcomeApplied Outcome = iota

	// OutcomeConflict means the statement lost a transient concurrency
	// race (serialization failure, deadlock victim) and may legitimately
	// be retried by the caller. This layer does not retry.
	OutcomeConflict
)

// ExecuteResult reports one mutating statement.
type ExecuteResult struct {
	// Success is true iff Outcome == OutcomeApplied.
	Success bool

	Outcome Outcome

	// RowsAffected is the backend's changed-row count.
	RowsAffected int64

	// LastInsertID is the backend-assigned id of an inserted row, when
	// the backend exposes one. Nil for backends that do not (postgres).
	LastInsertID *int64

	// Meta carries backend-specific counters, such as the command tag.
	Meta map[string]string
}

// CacheEntry is a cache value with its optional metadata.
type CacheEntry struct {
	Value    []byte
	Metadata map[string]string
}

// CachePutOptions control entry lifetime and metadata.
type CachePutOptions struct {
	// TTL expires the entry this long after the put. Takes precedence
	// over ExpiresAt when both are set.
	TTL time.Duration

	// ExpiresAt expires the entry at an absolute instant.
	ExpiresAt time.Time

	Metadata map[string]string
}

// CacheListOptions select a page of cache keys.
type CacheListOptions struct {
	Prefix string
	Limit  int
	Cursor string
}

// CacheKey describes one listed cache key.
type CacheKey struct {
	Name      string
	ExpiresAt *time.Time
	Metadata  map[string]string
}

// CacheListPage is one page of a cache listing. Complete is true iff no
// further cursor should be requested.
type CacheListPage struct {
	Keys     []CacheKey
	Cursor   string
	Complete bool
}

// ObjectMetadata describes a stored object. Head and Get return identical
// metadata for the same object version.
type ObjectMetadata struct {
	ContentType        string
	ContentLength      int64
	ETag               string
	LastModified       time.Time
	CacheControl       string
	ContentDisposition string
	ContentEncoding    string
	Custom             map[string]string
}

// Object is a retrieved object with its metadata.
type Object struct {
	Data     []byte
	Metadata ObjectMetadata
}

// ObjectPutOptions carry the metadata stored alongside an object.
type ObjectPutOptions struct {
	ContentType        string
	CacheControl       string
	ContentDisposition string
	ContentEncoding    string
	Custom             map[string]string
}

// ObjectListOptions select a page of an object listing.
type ObjectListOptions struct {
	Prefix    string
	Delimiter string
	Limit     int
	Cursor    string
}

// ObjectEntry describes one listed object.
type ObjectEntry struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectListPage is one page of an object listing. Keys containing the
// delimiter past the prefix are rolled up into DelimitedPrefixes instead
// of appearing in Objects.
type ObjectListPage struct {
	Objects           []ObjectEntry
	DelimitedPrefixes []string
	Cursor            string
	Complete          bool
}

// SignOptions control SignedURL.
type SignOptions struct {
	// ExpiresIn bounds the URL's validity. Adapters apply their own
	// default when zero.
	ExpiresIn time.Duration

	// Method is the HTTP method the URL authorizes (default GET).
	Method string
}

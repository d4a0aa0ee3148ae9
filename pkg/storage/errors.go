package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for object-store operations.
var (
	// ErrSourceNotFound is returned by Copy when the source key does not
	// exist. The destination is left untouched.
	ErrSourceNotFound = errors.New("copy source object not found")

	// ErrSigningUnsupported is returned by SignedURL when the backend has
	// no native signing capability and no fallback is configured.
	ErrSigningUnsupported = errors.New("signed URLs not supported by this provider")
)

// ConfigurationError reports an unusable storage configuration, such as an
// unregistered provider name or a missing binding. It is fatal: startup
// should abort rather than continue with a partially constructed provider.
type ConfigurationError struct {
	Capability string // "database", "cache", or "objectstore"
	Provider   string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("storage %s config: provider %q: %s", e.Capability, e.Provider, e.Reason)
	}
	return fmt.Sprintf("storage %s config: %s", e.Capability, e.Reason)
}

// QueryError wraps a backend rejection of a read statement.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.SQL, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ExecuteError wraps a backend rejection of a mutating statement. Transient
// concurrency conflicts are not ExecuteErrors; they come back as an
// ExecuteResult with OutcomeConflict.
type ExecuteError struct {
	SQL string
	Err error
}

func (e *ExecuteError) Error() string {
	return fmt.Sprintf("execute %q: %v", e.SQL, e.Err)
}

func (e *ExecuteError) Unwrap() error { return e.Err }

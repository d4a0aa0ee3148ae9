// Package storage defines the capability interfaces the rest of leaseway
// depends on for persistence: relational query execution (Database),
// ephemeral key/value caching (Cache), and binary object storage
// (ObjectStore).
//
// Application code never talks to a backend directly. Concrete adapters
// (postgres, badgercache, natsobj, memcache, memobj) implement these
// interfaces and register themselves by name in a Registry built at
// startup; the Registry doubles as the factory that turns configuration
// into capability instances. Call sites that still hold a raw backend
// handle from before the abstraction existed go through the normalization
// helpers in pkg/storage/providers, which wrap the handle on demand.
//
// Absence is reported as a nil result (QueryOne, Head, GetWithMetadata)
// or a false ok flag (Get, Has, Exists), never as an error. This layer
// performs no retries; transient backend failures propagate to the caller.
package storage

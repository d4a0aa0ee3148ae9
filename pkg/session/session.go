// Package session stores admin-console and storefront sessions in the
// cache capability. It accepts either an abstracted storage.Cache or a
// raw backend handle, normalizing through pkg/storage/providers, so call
// sites mid-migration can hand it whichever they hold.
//
// Sessions are scoped by the tenant carried in the context. Cookie
// signing and permission checks live in the request-handling layer, not
// here.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leaseway/leaseway/pkg/storage"
	"github.com/leaseway/leaseway/pkg/storage/providers"
)

// DefaultTTL applies when a store is created with no explicit TTL.
const DefaultTTL = 24 * time.Hour

// Session is one authenticated browser session.
type Session struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	UserID    string            `json:"user_id"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store persists sessions in a cache backend with per-entry TTL.
type Store struct {
	cache storage.Cache
	ttl   time.Duration
}

// NewStore builds a session store over backend, which may be a
// storage.Cache or a raw cache handle. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(backend any, ttl time.Duration) (*Store, error) {
	cache, err := providers.AsCache(backend)
	if err != nil {
		return nil, fmt.Errorf("session store backend: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: cache, ttl: ttl}, nil
}

// Create starts a session for userID under the tenant in ctx.
func (s *Store) Create(ctx context.Context, userID string, data map[string]string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		TenantID:  storage.TenantFrom(ctx),
		UserID:    userID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	encoded, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	err = s.cache.Put(ctx, s.key(ctx, sess.ID), encoded, storage.CachePutOptions{
		TTL:      s.ttl,
		Metadata: map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

// Get returns the session, or nil when it does not exist or has expired.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	value, ok, err := s.cache.Get(ctx, s.key(ctx, id))
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(value, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &sess, nil
}

// Touch re-arms the session's TTL, returning nil when the session no
// longer exists.
func (s *Store) Touch(ctx context.Context, id string) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil || sess == nil {
		return sess, err
	}

	encoded, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	err = s.cache.Put(ctx, s.key(ctx, id), encoded, storage.CachePutOptions{
		TTL:      s.ttl,
		Metadata: map[string]string{"user_id": sess.UserID},
	})
	if err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

// Destroy removes a session. Destroying an absent session is not an
// error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, s.key(ctx, id))
}

// ActiveIDs lists the session IDs currently live for the tenant in ctx.
func (s *Store) ActiveIDs(ctx context.Context) ([]string, error) {
	prefix := s.key(ctx, "")
	var ids []string
	cursor := ""
	for {
		page, err := s.cache.List(ctx, storage.CacheListOptions{Prefix: prefix, Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		for _, k := range page.Keys {
			ids = append(ids, k.Name[len(prefix):])
		}
		if page.Complete {
			return ids, nil
		}
		cursor = page.Cursor
	}
}

// key builds the cache key for a session, scoped by the context tenant.
func (s *Store) key(ctx context.Context, id string) string {
	return "session:" + storage.TenantFrom(ctx) + ":" + id
}

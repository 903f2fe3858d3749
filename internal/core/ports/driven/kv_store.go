package driven

import (
	"context"
	"time"
)

// KVStore is the ephemeral key-value store backing OAuth state tokens and
// credential handoff. Values are opaque strings with an expiration.
//
// The coordinator requires read-after-write visibility within a process:
// a Set followed by a Get on the same key must observe the written value.
// Both CSRF verification and credential delivery depend on it.
type KVStore interface {
	// Set stores value under key. A positive ttl bounds the key's lifetime;
	// once it elapses the key must no longer be readable. A zero ttl means
	// no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the stored value, or domain.ErrNotFound if the key is
	// absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// GetDel atomically reads and removes the key, returning the value that
	// was stored. Returns domain.ErrNotFound if the key is absent or
	// expired. This is the single-delivery primitive for credential handoff.
	GetDel(ctx context.Context, key string) (string, error)

	// Delete removes a key. Idempotent: deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Cleanup reaps expired entries for backends that expire lazily.
	// Backends with native expiry implement this as a no-op.
	Cleanup(ctx context.Context) error
}

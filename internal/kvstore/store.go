// Package kvstore is the ephemeral key/value store behind session
// enforcement, token revocation, and the profile cache. Entries carry a
// per-key TTL and disappear on their own; the store is the single source of
// truth for "is there an active session" and "was this token revoked".
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps infrastructure failures (store unreachable, timeout).
// It is retryable and must never be conflated with an authentication failure.
var ErrUnavailable = errors.New("ephemeral store unavailable")

// Store is a minimal TTL key/value store. All entries expire on their own
// once their TTL elapses; no explicit cleanup is required.
type Store interface {
	// Set writes key=value with the given TTL, overwriting any existing entry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key. ok is false when the key is absent or
	// expired; absence is not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// SetIfAbsent atomically writes key=value with the given TTL only when no
	// live entry exists for key. It returns true when the write happened.
	// This is the primitive that makes concurrent session acquisition safe; a
	// Get-then-Set sequence reintroduces the race it exists to prevent.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Expire re-sets the TTL of key without rewriting its value. Returns
	// false when no live entry exists for key.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

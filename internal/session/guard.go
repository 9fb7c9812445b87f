// Package session enforces the at-most-one-active-session-per-principal
// policy and tracks explicit token revocation, both backed by the ephemeral
// store. Natural expiry needs no action here: the store drops session keys
// and revocation markers on its own once their TTL elapses.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"token-authority/internal/kvstore"
)

// ErrDuplicateSession is returned when a principal already holds an active
// session. First login wins; later attempts are rejected until the holder
// logs out or the session TTL lapses.
var ErrDuplicateSession = errors.New("an active session already exists for this principal")

const (
	sessionKeyPrefix = "session:"
	revokedValue     = "revoked"
)

// SessionKey returns the store key holding a principal's current access
// token. The plain prefix keeps entries transparent to operators inspecting
// the store.
func SessionKey(principal string) string {
	return sessionKeyPrefix + principal
}

// Guard owns the session and revocation lifecycle for all principals.
type Guard struct {
	store kvstore.Store
}

// NewGuard returns a Guard backed by the given store.
func NewGuard(store kvstore.Store) *Guard {
	return &Guard{store: store}
}

// Acquire claims the session slot for principal, binding it to accessToken
// for ttl. The claim is a single atomic test-and-set against the store, so
// concurrent logins for the same principal see a linear first-wins outcome.
// Returns ErrDuplicateSession when the slot is already held.
func (g *Guard) Acquire(ctx context.Context, principal, accessToken string, ttl time.Duration) error {
	set, err := g.store.SetIfAbsent(ctx, SessionKey(principal), accessToken, ttl)
	if err != nil {
		return fmt.Errorf("acquire session for %s: %w", principal, err)
	}
	if !set {
		return ErrDuplicateSession
	}
	return nil
}

// Release frees the session slot and marks accessToken revoked for its
// remaining lifetime, so the token cannot be replayed between logout and its
// natural expiry. Idempotent: releasing an already-released session is a
// no-op on the delete and refreshes the revocation marker.
func (g *Guard) Release(ctx context.Context, principal, accessToken string, remainingTTL time.Duration) error {
	if err := g.store.Delete(ctx, SessionKey(principal)); err != nil {
		return fmt.Errorf("release session for %s: %w", principal, err)
	}
	if remainingTTL <= 0 {
		// The token is already past its expiry; the codec rejects it anyway.
		return nil
	}
	if err := g.store.Set(ctx, accessToken, revokedValue, remainingTTL); err != nil {
		return fmt.Errorf("mark token revoked for %s: %w", principal, err)
	}
	return nil
}

// Rotate re-binds the session slot to a newly issued access token with a
// fresh ttl. Used on refresh-token exchange: the refresh token's validity
// already proves a legitimate holder, so no duplicate check runs.
func (g *Guard) Rotate(ctx context.Context, principal, accessToken string, ttl time.Duration) error {
	if err := g.store.Set(ctx, SessionKey(principal), accessToken, ttl); err != nil {
		return fmt.Errorf("rotate session for %s: %w", principal, err)
	}
	return nil
}

// IsRevoked reports whether token was explicitly invalidated before its
// natural expiry.
func (g *Guard) IsRevoked(ctx context.Context, token string) (bool, error) {
	v, ok, err := g.store.Get(ctx, token)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return ok && v == revokedValue, nil
}

// ActiveToken returns the access token currently bound to principal's
// session, or ok=false when no session is active.
func (g *Guard) ActiveToken(ctx context.Context, principal string) (string, bool, error) {
	v, ok, err := g.store.Get(ctx, SessionKey(principal))
	if err != nil {
		return "", false, fmt.Errorf("read session for %s: %w", principal, err)
	}
	return v, ok, nil
}

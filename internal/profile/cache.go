// Package profile caches a minimal snapshot of an employee's profile in the
// ephemeral store so the hot authentication path does not hit the primary
// store. The cache is an optimization, never a source of truth: absence is
// not an error and callers fall back to the repository.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"token-authority/internal/kvstore"
)

const cacheKeyPrefix = "user:"

// Snapshot is the read-mostly projection cached per employee.
type Snapshot struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Scope      string `json:"scope"`
	Shift      string `json:"shift"`
}

// CacheKey returns the store key for an employee's snapshot.
func CacheKey(employeeID string) string {
	return cacheKeyPrefix + employeeID
}

// Cache stores profile snapshots with a TTL tied to the session lifecycle:
// populated on login, extended on refresh-token use.
type Cache struct {
	store kvstore.Store
	ttl   time.Duration
}

// NewCache returns a Cache writing snapshots with the given default TTL.
func NewCache(store kvstore.Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// TTL returns the cache's default entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Put writes the snapshot under the employee's cache key with the default TTL.
func (c *Cache) Put(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode profile snapshot: %w", err)
	}
	if err := c.store.Set(ctx, CacheKey(snap.EmployeeID), string(payload), c.ttl); err != nil {
		return fmt.Errorf("cache profile for %s: %w", snap.EmployeeID, err)
	}
	return nil
}

// Get returns the cached snapshot for employeeID. ok is false on a cache
// miss, which is not an error.
func (c *Cache) Get(ctx context.Context, employeeID string) (Snapshot, bool, error) {
	raw, ok, err := c.store.Get(ctx, CacheKey(employeeID))
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read profile cache for %s: %w", employeeID, err)
	}
	if !ok {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt entry is treated as a miss; the next Put overwrites it.
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Invalidate drops the cached snapshot so the next read falls back to the
// repository. Deleting an absent entry is a no-op.
func (c *Cache) Invalidate(ctx context.Context, employeeID string) error {
	if err := c.store.Delete(ctx, CacheKey(employeeID)); err != nil {
		return fmt.Errorf("invalidate profile cache for %s: %w", employeeID, err)
	}
	return nil
}

// ExtendTTL re-arms the snapshot's TTL without rewriting its value, keeping
// the entry warm alongside a refreshed session. A miss is not an error.
func (c *Cache) ExtendTTL(ctx context.Context, employeeID string) error {
	if _, err := c.store.Expire(ctx, CacheKey(employeeID), c.ttl); err != nil {
		return fmt.Errorf("extend profile cache for %s: %w", employeeID, err)
	}
	return nil
}

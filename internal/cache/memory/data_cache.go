// Package memory provides the default in-process implementation of the
// dashboard data cache: a lock-guarded map with per-entry TTLs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alexvgr/krakendash/internal/domain"
)

type entry struct {
	data      domain.DashboardData
	expiresAt time.Time
}

// DataCache is an in-process TTL cache for dashboard snapshots. Entries are
// replaced as whole values under the lock, so readers never observe a
// partially written snapshot.
type DataCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewDataCache creates an empty DataCache.
func NewDataCache() *DataCache {
	return &DataCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached snapshot for key if present and not expired.
func (c *DataCache) Get(_ context.Context, key string) (domain.DashboardData, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return domain.DashboardData{}, false, nil
	}
	return e.data, true, nil
}

// Set stores a snapshot under key with the given TTL, replacing any previous
// entry atomically.
func (c *DataCache) Set(_ context.Context, key string, data domain.DashboardData, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		data:      data,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Delete removes the entry for key, if any.
func (c *DataCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Sweep evicts all expired entries and returns how many were removed. It is
// intended to be run periodically; Get already treats expired entries as
// misses, so sweeping only reclaims memory.
func (c *DataCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (c *DataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Compile-time interface check.
var _ domain.DataCache = (*DataCache)(nil)

// Package cache provides the in-process TTL cache the page store is wired
// with. Entries expire at an absolute deadline; there is no sliding window.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process key/value cache with absolute-expiration entries.
type Memory struct {
	backend *gocache.Cache
}

// NewMemory constructs a cache whose entries default to defaultTTL and are
// swept by a background janitor every cleanupInterval.
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{backend: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns the live value stored under key, if any.
func (m *Memory) Get(key string) (any, bool) {
	return m.backend.Get(key)
}

// SetWithTTL stores value under key, expiring ttl from now. A non-positive
// ttl falls back to the cache default.
func (m *Memory) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.backend.Set(key, value, ttl)
}

// Delete removes the entry stored under key, if present.
func (m *Memory) Delete(key string) {
	m.backend.Delete(key)
}

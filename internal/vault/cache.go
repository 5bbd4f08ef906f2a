package vault

import (
	"sync"
	"time"

	enverrors "github.com/envault/envault/internal/errors"
	"github.com/envault/envault/pkg/store"
)

// MaxCacheTTL is the upper bound for the cache TTL in seconds. Large enough
// for any practical deployment while rejecting nonsensical values that would
// overflow duration arithmetic.
const MaxCacheTTL = 999999999

// CacheEntry is a cached secret mapping together with its absolute expiry.
type CacheEntry struct {
	Value     store.Secret
	ExpiresAt time.Time
}

// TTLCache maps full secret paths to fetched mappings with per-entry expiry.
//
// A TTL of zero disables storage entirely: Get always misses and Set is a
// no-op. The clock is injectable so tests can advance time deterministically.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache creates a cache with the given TTL in seconds.
//
// The TTL must lie in [0, MaxCacheTTL]; anything else is a construction-time
// configuration error, never deferred to first use.
func NewTTLCache(ttlSeconds int) (*TTLCache, error) {
	if ttlSeconds < 0 || ttlSeconds > MaxCacheTTL {
		return nil, enverrors.ConfigError{
			Field:      "cache_ttl",
			Value:      ttlSeconds,
			Message:    "must be in range [0, 999999999] seconds",
			Suggestion: "Use 0 to disable caching or a positive number of seconds",
		}
	}
	return &TTLCache{
		entries: make(map[string]CacheEntry),
		ttl:     time.Duration(ttlSeconds) * time.Second,
		now:     time.Now,
	}, nil
}

// Get returns the cached mapping for fullPath if present and unexpired.
// An expired entry behaves as absent.
func (c *TTLCache) Get(fullPath string) (store.Secret, bool) {
	if c.ttl == 0 {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[fullPath]
	now := c.now
	c.mu.RUnlock()

	if !ok || !now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under fullPath with a freshly computed expiry,
// overwriting any previous entry. No-op when caching is disabled.
func (c *TTLCache) Set(fullPath string, value store.Secret) {
	if c.ttl == 0 {
		return
	}

	c.mu.Lock()
	c.entries[fullPath] = CacheEntry{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Data exposes a copy of the raw entry mapping for diagnostics.
func (c *TTLCache) Data() map[string]CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]CacheEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// TTL returns the configured time-to-live.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}

// setClock replaces the cache's clock. Test hook.
func (c *TTLCache) setClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

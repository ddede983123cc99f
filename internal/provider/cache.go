package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/AliZeynalov/keybridge/internal/models"
)

// ModelCache remembers the model resolved for each (provider, API key) pair.
// Keys are stored as SHA-256 digests so raw credentials never outlive a request.
// A zero TTL keeps entries for the lifetime of the cache.
type ModelCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	provider models.ProviderID
	digest   string
}

type cacheEntry struct {
	model    string
	storedAt time.Time
}

// NewModelCache creates an empty cache.
func NewModelCache(ttl time.Duration) *ModelCache {
	return &ModelCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

func keyDigest(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached model, if any and not expired.
func (c *ModelCache) Get(provider models.ProviderID, apiKey string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey{provider, keyDigest(apiKey)}]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) >= c.ttl {
		return "", false
	}
	return entry.model, true
}

// Set stores model for the pair, replacing any previous entry.
func (c *ModelCache) Set(provider models.ProviderID, apiKey, model string) {
	c.mu.Lock()
	c.entries[cacheKey{provider, keyDigest(apiKey)}] = cacheEntry{model: model, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops the entry for the pair.
func (c *ModelCache) Invalidate(provider models.ProviderID, apiKey string) {
	c.mu.Lock()
	delete(c.entries, cacheKey{provider, keyDigest(apiKey)})
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

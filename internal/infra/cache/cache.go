// Package cache provides in-memory caching of probe metadata so repeated
// links from the same chat do not re-invoke the extractor.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ytdbot/ytd-bot/internal/engine"
)

// MetadataCache caches extractor metadata keyed by canonical URL.
type MetadataCache struct {
	cache *gocache.Cache
}

// NewMetadataCache creates a MetadataCache with the given TTL and cleanup
// interval.
func NewMetadataCache(ttl, cleanupInterval time.Duration) *MetadataCache {
	return &MetadataCache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// DefaultMetadataCache creates a MetadataCache with a 1 hour TTL and
// 10 minute cleanup interval, matching the selection-session lifetime.
func DefaultMetadataCache() *MetadataCache {
	return NewMetadataCache(time.Hour, 10*time.Minute)
}

// Get retrieves metadata for a canonical URL.
func (c *MetadataCache) Get(canonicalURL string) (*engine.Metadata, bool) {
	if item, found := c.cache.Get(canonicalURL); found {
		if meta, ok := item.(*engine.Metadata); ok {
			return meta, true
		}
	}
	return nil, false
}

// Set stores metadata under a canonical URL with the default TTL.
func (c *MetadataCache) Set(canonicalURL string, meta *engine.Metadata) {
	c.cache.Set(canonicalURL, meta, gocache.DefaultExpiration)
}

// Delete removes a cached entry.
func (c *MetadataCache) Delete(canonicalURL string) {
	c.cache.Delete(canonicalURL)
}

// ItemCount returns the number of cached entries.
func (c *MetadataCache) ItemCount() int {
	return c.cache.ItemCount()
}

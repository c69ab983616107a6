// Package searchcache wires cache.Engine to a single-JSON-document storage
// for Scryfall search results, keyed by lowercased query string.
//
// Grounded on original_source/magic-proxy-core/src/search_results_cache.rs:
// a single file holding every entry, a default 1000-entry / ~50MB budget,
// eager persistence disabled.
package searchcache

import (
	"strings"

	"github.com/cardforge/cardforge/internal/card"
	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/cache/storage"
	"github.com/cardforge/cardforge/internal/metrics"
	"go.uber.org/zap"
)

const metricsName = "search"

// Cache is a search-result cache keyed by lowercased query string.
type Cache struct {
	engine  *cache.Engine[string, card.SearchResult]
	metrics *metrics.Registry
}

// New builds a search-result Cache persisted at path, bounded by maxEntries
// and/or maxBytes (either may be nil for unlimited).
func New(path string, maxEntries *int, maxBytes *int64, sizeEstimate int64, log *zap.Logger, reg *metrics.Registry) *Cache {
	jsonStorage := storage.NewJSONStorage(path, sizeEstimate)
	engine := cache.New(cache.Config{MaxEntries: maxEntries, MaxBytes: maxBytes}, jsonStorage, log)
	return &Cache{engine: engine, metrics: reg}
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Get returns the cached search result for query, if present.
func (c *Cache) Get(query string) (card.SearchResult, bool) {
	v, ok := c.engine.Get(normalize(query))
	c.observe(ok)
	return v, ok
}

// Put inserts or replaces the cached search result for query.
func (c *Cache) Put(query string, result card.SearchResult) error {
	return c.engine.Insert(normalize(query), result)
}

// ForceEvict removes query's cached result, if present.
func (c *Cache) ForceEvict(query string) (bool, error) {
	return c.engine.Evict(normalize(query))
}

// Flush persists the in-memory index to disk.
func (c *Cache) Flush() error {
	return c.engine.SaveToStorage()
}

// Stats returns a diagnostic snapshot of the cache's current state.
func (c *Cache) Stats() cache.Stats {
	return c.engine.Stats()
}

func (c *Cache) observe(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHit(metricsName)
	} else {
		c.metrics.CacheMiss(metricsName)
	}
}

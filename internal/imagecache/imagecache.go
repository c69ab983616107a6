// Package imagecache wires cache.Engine to a file-backed storage.Storage for
// card image bytes, keyed by their source URL.
//
// Grounded on original_source/magic-proxy-core/src/cache/file_storage.rs and
// spec.md's image-cache sizing section: one file per entry, a default 1GiB
// budget, eager persistence disabled (Save happens on explicit shutdown).
package imagecache

import (
	"github.com/cardforge/cardforge/internal/cache"
	"github.com/cardforge/cardforge/internal/cache/storage"
	"github.com/cardforge/cardforge/internal/metrics"
	"go.uber.org/zap"
)

const metricsName = "image"

// Cache is a byte-content cache for card image downloads.
type Cache struct {
	engine  *cache.Engine[string, []byte]
	metrics *metrics.Registry
}

// New builds an image Cache rooted at cacheDir, with a maximum total size of
// maxBytes (nil meaning unlimited).
func New(cacheDir string, maxBytes *int64, sizeEstimate int64, log *zap.Logger, reg *metrics.Registry) (*Cache, error) {
	fileStorage, err := storage.NewFileStorage(cacheDir, ".img", sizeEstimate)
	if err != nil {
		return nil, err
	}
	engine := cache.New(cache.Config{MaxBytes: maxBytes}, fileStorage, log)
	return &Cache{engine: engine, metrics: reg}, nil
}

// Get returns the cached image bytes for url, if present.
func (c *Cache) Get(url string) ([]byte, bool) {
	v, ok := c.engine.Get(url)
	c.observe(ok)
	return v, ok
}

// Put inserts or replaces the cached image bytes for url.
func (c *Cache) Put(url string, data []byte) error {
	return c.engine.Insert(url, data)
}

// Evict removes url's cached image, if present.
func (c *Cache) Evict(url string) (bool, error) {
	return c.engine.Evict(url)
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

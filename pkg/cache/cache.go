package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/protomerge/pkg/merger"
	"github.com/platinummonkey/protomerge/pkg/observability"
)

// Config holds cache configuration
type Config struct {
	MaxEntries int           // Merged schemas kept (default: 32)
	TTL        time.Duration // Entry lifetime, 0 disables expiry (default: 10 minutes)
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxEntries: 32,
		TTL:        10 * time.Minute,
	}
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	HitRate   float64
	ItemCount int
}

// MergeCache is an in-memory LRU of merged schemas. Merged schemas are read-only,
// so cached values are shared between callers.
type MergeCache struct {
	cache   *lru.LRU[string, *merger.MergedSchema]
	metrics *observability.MergeMetrics
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache. metrics may be nil.
func New(cfg Config, metrics *observability.MergeMetrics) *MergeCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	return &MergeCache{
		cache:   lru.NewLRU[string, *merger.MergedSchema](cfg.MaxEntries, nil, cfg.TTL),
		metrics: metrics,
	}
}

// Get retrieves a merged schema by fingerprint
func (c *MergeCache) Get(key string) (*merger.MergedSchema, error) {
	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	merged, ok := c.cache.Get(key)
	if !ok {
		c.misses.Add(1)
		c.metrics.IncCacheRequest("miss")
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	c.metrics.IncCacheRequest("hit")
	return merged, nil
}

// Set stores a merged schema
func (c *MergeCache) Set(key string, merged *merger.MergedSchema) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if merged == nil {
		return fmt.Errorf("merged schema cannot be nil")
	}
	c.cache.Add(key, merged)
	return nil
}

// GetOrMerge returns the cached schema for key or runs merge and caches its result.
// A nil cache always merges. The bool reports a cache hit.
func (c *MergeCache) GetOrMerge(ctx context.Context, key string, merge func(context.Context) (*merger.MergedSchema, error)) (*merger.MergedSchema, bool, error) {
	if c == nil {
		merged, err := merge(ctx)
		return merged, false, err
	}

	if merged, err := c.Get(key); err == nil {
		return merged, true, nil
	}

	merged, err := merge(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(key, merged); err != nil {
		return nil, false, err
	}
	return merged, false, nil
}

// Stats returns cache statistics
func (c *MergeCache) Stats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		ItemCount: c.cache.Len(),
	}

	// Calculate hit rate
	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Purge drops every entry
func (c *MergeCache) Purge() {
	c.cache.Purge()
}

package embedding

import (
	"context"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/mardukros/mardukros-sub000/tensor"
)

// CacheConfig tunes the underlying ristretto cache. NumCounters and
// MaxCost follow ristretto's own sizing guidance (10x the expected
// item count for counters; MaxCost in arbitrary cost units, here one
// per vector element, since each entry costs len(vector)).
type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

func (c CacheConfig) withDefaults() CacheConfig {
	if c.NumCounters == 0 {
		c.NumCounters = 1e5
	}
	if c.MaxCost == 0 {
		c.MaxCost = 1 << 20
	}
	if c.BufferItems == 0 {
		c.BufferItems = 64
	}
	return c
}

// Cache wraps a Provider with a ristretto-backed embedding cache keyed
// by cacheKey(text), implementing the "caches by SHA-256 of normalized
// text" contract of spec §4.4. Admission and eviction are ristretto's
// own probabilistic policy; the spec places no determinism requirement
// on this cache (unlike the weighted LRU context cache).
type Cache struct {
	provider Provider
	inner    *ristretto.Cache[string, []float64]
}

// NewCache wraps provider with a ristretto cache sized by cfg.
func NewCache(provider Provider, cfg CacheConfig) (*Cache, error) {
	cfg = cfg.withDefaults()
	inner, err := ristretto.NewCache(&ristretto.Config[string, []float64]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{provider: provider, inner: inner}, nil
}

// Embed returns the cached embedding for text if present, otherwise
// calls the wrapped provider and caches a finite-valued result.
func (c *Cache) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)
	if v, ok := c.inner.Get(key); ok {
		return v, nil
	}
	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if tensor.Finite(vec) {
		c.inner.Set(key, vec, int64(len(vec)))
	}
	return vec, nil
}

// Close releases the underlying ristretto cache's background goroutines.
func (c *Cache) Close() {
	c.inner.Close()
}

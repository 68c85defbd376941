package coordinator

import (
	"context"

	"github.com/mardukros/mardukros-sub000/contextcore"
	"github.com/mardukros/mardukros-sub000/contextcore/validator"
	"github.com/mardukros/mardukros-sub000/xerrors"
)

// PersistContext snapshots the entire context cache and saves it
// through the configured persistence.Store, per spec §6's
// context-cache.json layout: an array of fingerprint/entry pairs.
func (c *Coordinator) PersistContext(ctx context.Context) error {
	if c.cachePersist == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachePersist.Save(ctx, c.cacheRecords())
}

// CreateContextSnapshot writes an immutable, timestamped copy of the
// current cache contents (spec §4.3 snapshot lifecycle).
func (c *Coordinator) CreateContextSnapshot(ctx context.Context) (string, error) {
	if c.cachePersist == nil {
		return "", xerrors.NewMemoryPersistenceError("snapshot", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachePersist.CreateSnapshot(ctx, c.cacheRecords())
}

// RestoreContextSnapshot replaces matching cache entries with the
// snapshot named by timestamp. Entries not present in the snapshot are
// left untouched: the snapshot is merged into the cache, unlike
// memorycore's RestoreSnapshot, which replaces a subsystem's whole map.
func (c *Coordinator) RestoreContextSnapshot(ctx context.Context, timestamp string) error {
	if c.cachePersist == nil {
		return xerrors.NewMemoryPersistenceError("restore", nil)
	}
	records, err := c.cachePersist.RestoreSnapshot(ctx, timestamp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		entry := r.Entry
		c.cacheStore.Set(r.Key, &entry, entry.Weight)
	}
	return nil
}

// ListContextSnapshots returns known snapshot timestamps, newest first.
func (c *Coordinator) ListContextSnapshots() ([]string, error) {
	if c.cachePersist == nil {
		return nil, nil
	}
	return c.cachePersist.ListSnapshots()
}

func (c *Coordinator) cacheRecords() []CacheRecord {
	items := c.cacheStore.Items()
	records := make([]CacheRecord, 0, len(items))
	for key, entry := range items {
		records = append(records, CacheRecord{Key: key, Entry: *entry})
	}
	return records
}

// CacheStats is spec §4.8's getCacheStats result: hit/miss counters,
// the derived hit rate, and the registered source count.
type CacheStats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Size        int
	Capacity    int
	HitRate     float64
	SourceCount int
}

// CacheStats reports the current cache counters plus how many context
// sources are registered.
func (c *Coordinator) CacheStats() CacheStats {
	s := c.cacheStore.Stats()
	total := s.Hits + s.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(s.Hits) / float64(total)
	}
	sourceCount := 0
	if c.sourceManager != nil {
		sourceCount = c.sourceManager.SourceCount()
	}
	return CacheStats{
		Hits:        s.Hits,
		Misses:      s.Misses,
		Evictions:   s.Evictions,
		Size:        s.Size,
		Capacity:    s.Capacity,
		HitRate:     hitRate,
		SourceCount: sourceCount,
	}
}

func (c *Coordinator) validatorOptions() validator.Options {
	return validator.Options{
		MaxAge: c.ai.RecencyWindow,
		Strict: c.ai.StrictValidationMode,
	}
}

// ValidateContextCache runs the validator over every cache entry's
// context lines, optionally fixing issues in place, writing the fixed
// entries back to the cache and deleting the entries the fixer dropped
// (spec §4.7 cache fixer variant).
func (c *Coordinator) ValidateContextCache(applyFixes bool) map[string]validator.Result {
	opt := c.validatorOptions()
	entries := c.cacheStore.Items()
	results := validator.ValidateCache(entries, opt)
	if applyFixes {
		validator.FixCache(entries, results, opt)
		for key := range results {
			if _, kept := entries[key]; !kept {
				c.cacheStore.Delete(key)
			}
		}
		for key, entry := range entries {
			c.cacheStore.Set(key, entry, entry.Weight)
		}
	}
	return results
}

// ValidateContextItems runs the validator over an arbitrary item slice
// (e.g. a batch freshly returned from the source manager), returning
// the result and, when applyFixes is set, the fixed items.
func (c *Coordinator) ValidateContextItems(items []contextcore.Item, applyFixes bool) (validator.Result, []contextcore.Item) {
	opt := c.validatorOptions()
	result := validator.Validate(items, opt)
	if !applyFixes {
		return result, items
	}
	return result, validator.Fix(items, result, opt)
}

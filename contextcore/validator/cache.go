package validator

import (
	"time"

	"github.com/mardukros/mardukros-sub000/contextcore"
)

// ValidateCache runs the Context Items validator over every cache
// entry's context lines, keyed by fingerprint, per spec §4.7 ("Cache
// fixer variant operates on ContextCacheItem keys").
func ValidateCache(entries map[string]*contextcore.CacheEntry, opt Options) map[string]Result {
	out := make(map[string]Result, len(entries))
	for key, entry := range entries {
		items := make([]contextcore.Item, 0, len(entry.Context))
		for _, line := range entry.Context {
			ts := entry.LastAccessed
			items = append(items, contextcore.Item{Content: line, Source: "cache", Type: "context", Metadata: contextcore.ItemMetadata{Timestamp: &ts}})
		}
		out[key] = Validate(items, opt)
	}
	return out
}

// FixCache applies the cache fixer variant: entries whose validation
// result is not valid are dropped entirely in strict mode, or have
// their offending context lines fixed in place otherwise.
func FixCache(entries map[string]*contextcore.CacheEntry, results map[string]Result, opt Options) {
	now := time.Now()
	for key, result := range results {
		entry, ok := entries[key]
		if !ok || result.IsValid {
			continue
		}
		if opt.Strict {
			delete(entries, key)
			continue
		}
		items := make([]contextcore.Item, len(entry.Context))
		for i, line := range entry.Context {
			items[i] = contextcore.Item{Content: line}
		}
		fixed := Fix(items, result, opt)
		lines := make([]string, len(fixed))
		for i, it := range fixed {
			lines[i] = it.Content
		}
		entry.Context = lines
		entry.LastAccessed = now
	}
}

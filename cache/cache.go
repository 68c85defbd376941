// Package cache implements the weighted LRU context cache of spec §4.5:
// a capacity-bound map whose eviction candidate is chosen by a weighted
// score rather than strict recency, with TTL extension on hit and an
// optional dispose callback.
//
// Per SPEC_FULL.md §11's stdlib-justification note, eviction ordering
// uses container/heap rather than a third-party LRU/cache library: the
// scoring formula and deterministic lastAccessed tie-break are spec
// invariants this package's tests check directly, which rules out a
// library with its own (opaque, often probabilistic) eviction policy.
package cache

import (
	"container/heap"
	"sort"
	"sync"
	"time"
)

// Options tunes the scoring formula and TTL-extension behavior.
type Options struct {
	Capacity int

	// Alpha, Beta, Gamma, Delta weight recencyNorm, frequencyNorm,
	// weight, and ageDecay respectively in the score formula
	// score = α·recencyNorm + β·frequencyNorm + γ·weight − δ·ageDecay.
	Alpha, Beta, Gamma, Delta float64

	// RecencyHalfLife controls how fast recencyNorm decays with time
	// since lastAccessed (exp(-elapsed·ln2/halfLife), halving every
	// halfLife).
	RecencyHalfLife time.Duration
	// AgeHalfLife controls how fast ageDecay grows with time since
	// createdAt (age/(age+halfLife), saturating toward 1).
	AgeHalfLife time.Duration
	// FrequencySmoothing is the saturation constant K in
	// accessCount/(accessCount+K).
	FrequencySmoothing float64

	DefaultTTL         time.Duration
	MaxTTLExtensions   int
	TTLExtensionFactor float64 // default 1.5, per spec §4.5

	// Dispose is invoked with (key, value) when an entry is evicted,
	// either by capacity pressure or TTL expiry.
	Dispose func(key, value any)
}

func (o Options) withDefaults() Options {
	if o.Alpha == 0 && o.Beta == 0 && o.Gamma == 0 && o.Delta == 0 {
		o.Alpha, o.Beta, o.Gamma, o.Delta = 0.4, 0.3, 0.2, 0.1
	}
	if o.RecencyHalfLife == 0 {
		o.RecencyHalfLife = 10 * time.Minute
	}
	if o.AgeHalfLife == 0 {
		o.AgeHalfLife = 24 * time.Hour
	}
	if o.FrequencySmoothing == 0 {
		o.FrequencySmoothing = 5
	}
	if o.DefaultTTL == 0 {
		o.DefaultTTL = 30 * time.Minute
	}
	if o.TTLExtensionFactor == 0 {
		o.TTLExtensionFactor = 1.5
	}
	return o
}

// Stats are the monotonic-within-a-process counters spec §4.5 requires.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Capacity  int
	OldestAge time.Duration
	NewestAge time.Duration
}

type entry[K comparable, V any] struct {
	key           K
	value         V
	createdAt     time.Time
	lastAccessed  time.Time
	accessCount   int
	weight        float64
	ttl           time.Duration
	ttlExtensions int
	heapIndex     int
}

// Cache is the generic weighted LRU cache of spec §4.5.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	opt   Options
	items map[K]*entry[K, V]
	pq    *priorityQueue[K, V]
	stats Stats
}

// NewCache constructs a Cache per opt, applying spec §4.5 defaults for
// any zero-valued tunable.
func NewCache[K comparable, V any](opt Options) *Cache[K, V] {
	opt = opt.withDefaults()
	return &Cache[K, V]{
		opt:   opt,
		items: make(map[K]*entry[K, V]),
		pq:    &priorityQueue[K, V]{opt: opt},
		stats: Stats{Capacity: opt.Capacity},
	}
}

// Get returns the cached value for key, updating lastAccessed and
// accessCount on a hit and extending ttl per the rule in spec §4.5:
// "if the item's weight is above median and it has not exceeded
// maxTtlExtensions, extend ttl by a factor."
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	now := time.Now()
	if c.expiredLocked(e, now) {
		c.removeLocked(e)
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.stats.Hits++
	e.lastAccessed = now
	e.accessCount++
	if c.aboveMedianWeightLocked(e) && e.ttlExtensions < c.opt.MaxTTLExtensions {
		e.ttl = time.Duration(float64(e.ttl) * c.opt.TTLExtensionFactor)
		e.ttlExtensions++
	}
	heap.Fix(c.pq, e.heapIndex)
	return e.value, true
}

// Set inserts or updates key's entry and never blocks on I/O; when at
// capacity, the lowest-scoring entry is evicted first (ties broken by
// oldest lastAccessed, spec §4.5).
func (c *Cache[K, V]) Set(key K, value V, weight float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.items[key]; ok {
		e.value = value
		e.weight = weight
		e.lastAccessed = now
		heap.Fix(c.pq, e.heapIndex)
		return
	}

	if c.opt.Capacity > 0 && len(c.items) >= c.opt.Capacity {
		c.evictLowestLocked()
	}

	e := &entry[K, V]{
		key:          key,
		value:        value,
		createdAt:    now,
		lastAccessed: now,
		accessCount:  1,
		weight:       weight,
		ttl:          c.opt.DefaultTTL,
	}
	c.items[key] = e
	heap.Push(c.pq, e)
}

// Delete removes key without invoking Dispose (explicit removal, not
// an eviction).
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.removeHeapLocked(e)
		delete(c.items, key)
	}
}

// PurgeExpired removes every entry whose ttl has elapsed, invoking
// Dispose for each. Spec §4.5: "TTL expiry removes the entry on the
// next scheduled score update... or when observed."
func (c *Cache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	var removed int
	for _, e := range c.snapshotEntriesLocked() {
		if c.expiredLocked(e, now) {
			c.removeLocked(e)
			removed++
		}
	}
	return removed
}

func (c *Cache[K, V]) snapshotEntriesLocked() []*entry[K, V] {
	out := make([]*entry[K, V], 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e)
	}
	return out
}

func (c *Cache[K, V]) expiredLocked(e *entry[K, V], now time.Time) bool {
	if e.ttl <= 0 {
		return false
	}
	return now.Sub(e.lastAccessed) > e.ttl
}

func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	c.removeHeapLocked(e)
	delete(c.items, e.key)
	c.stats.Evictions++
	if c.opt.Dispose != nil {
		c.opt.Dispose(e.key, e.value)
	}
}

func (c *Cache[K, V]) removeHeapLocked(e *entry[K, V]) {
	if e.heapIndex >= 0 && e.heapIndex < c.pq.Len() && c.pq.items[e.heapIndex] == e {
		heap.Remove(c.pq, e.heapIndex)
	}
}

func (c *Cache[K, V]) evictLowestLocked() {
	if c.pq.Len() == 0 {
		return
	}
	e := heap.Pop(c.pq).(*entry[K, V])
	delete(c.items, e.key)
	c.stats.Evictions++
	if c.opt.Dispose != nil {
		c.opt.Dispose(e.key, e.value)
	}
}

func (c *Cache[K, V]) aboveMedianWeightLocked(target *entry[K, V]) bool {
	if len(c.items) <= 1 {
		return true
	}
	weights := make([]float64, 0, len(c.items))
	for _, e := range c.items {
		weights = append(weights, e.weight)
	}
	sort.Float64s(weights)
	median := weights[len(weights)/2]
	return target.weight >= median
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.items)
	now := time.Now()
	var oldest, newest time.Duration
	first := true
	for _, e := range c.items {
		age := now.Sub(e.createdAt)
		if first {
			oldest, newest = age, age
			first = false
			continue
		}
		if age > oldest {
			oldest = age
		}
		if age < newest {
			newest = age
		}
	}
	s.OldestAge, s.NewestAge = oldest, newest
	return s
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Items returns a snapshot copy of every key/value pair currently
// cached, for callers that need to persist or bulk-validate the whole
// cache (spec §4.5 "the persisted cache file... is a snapshot of every
// entry").
func (c *Cache[K, V]) Items() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[K]V, len(c.items))
	for k, e := range c.items {
		out[k] = e.value
	}
	return out
}

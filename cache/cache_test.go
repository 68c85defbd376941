package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	c := NewCache[string, string](Options{Capacity: 10})
	c.Set("a", "alpha", 0.5)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestGetMissIncrementsMisses(t *testing.T) {
	c := NewCache[string, string](Options{Capacity: 10})
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestEvictsLowestScoringEntryAtCapacity(t *testing.T) {
	var evicted []string
	c := NewCache[string, string](Options{
		Capacity: 2,
		Dispose:  func(key, _ any) { evicted = append(evicted, key.(string)) },
	})
	c.Set("low", "low-value", 0.0)
	c.Set("high", "high-value", 1.0)
	// "low" has the lowest weight and the oldest lastAccessed; it must
	// be the one evicted when a third entry forces capacity pressure.
	c.Set("newest", "newest-value", 0.5)

	require.Len(t, evicted, 1)
	assert.Equal(t, "low", evicted[0])
	assert.Equal(t, 2, c.Len())
}

func TestPurgeExpiredRemovesEntriesPastTTL(t *testing.T) {
	c := NewCache[string, string](Options{Capacity: 10, DefaultTTL: 1 * time.Millisecond})
	c.Set("a", "alpha", 0.5)
	time.Sleep(5 * time.Millisecond)

	removed := c.PurgeExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Len())
}

func TestDeleteDoesNotInvokeDispose(t *testing.T) {
	var disposed bool
	c := NewCache[string, string](Options{
		Capacity: 10,
		Dispose:  func(_, _ any) { disposed = true },
	})
	c.Set("a", "alpha", 0.5)
	c.Delete("a")
	assert.False(t, disposed)
	assert.Equal(t, 0, c.Len())
}

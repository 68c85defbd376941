package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenCounterCountsNonEmptyText(t *testing.T) {
	counter := NewTokenCounter()
	n := counter.Count("gpt-4o-mini", "the quick brown fox jumps over the lazy dog")
	assert.Greater(t, n, 0)
}

func TestTokenCounterEmptyTextIsZero(t *testing.T) {
	counter := NewTokenCounter()
	assert.Equal(t, 0, counter.Count("gpt-4o-mini", ""))
}

func TestTokenCounterCachesEncoderAcrossCalls(t *testing.T) {
	counter := NewTokenCounter()
	counter.Count("gpt-4o-mini", "warm the cache")
	assert.Len(t, counter.encoders, 1)
	counter.Count("gpt-4o-mini", "reuse the cache")
	assert.Len(t, counter.encoders, 1)
}

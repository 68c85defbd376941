package sourcemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mardukros/mardukros-sub000/contextcore"
	"github.com/mardukros/mardukros-sub000/contextcore/sources"
)

type stubSource struct {
	sourceType string
	priority   int
	items      []contextcore.Item
	delay      time.Duration
}

func (s *stubSource) SourceType() string { return s.sourceType }
func (s *stubSource) Priority() int      { return s.priority }
func (s *stubSource) GetContext(ctx context.Context, _ string, _ sources.Options) ([]contextcore.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.items, nil
}

func TestGetContextOrdersByPriority(t *testing.T) {
	high := &stubSource{sourceType: "high", priority: 10, items: []contextcore.Item{{Content: "high-item", Source: "high", Type: "t"}}}
	low := &stubSource{sourceType: "low", priority: 1, items: []contextcore.Item{{Content: "low-item", Source: "low", Type: "t"}}}

	m := New(low, high)
	out := m.GetContext(context.Background(), "query", sources.Options{TimeoutMs: 500})

	require.Len(t, out, 2)
	assert.Equal(t, "high-item", out[0].Content)
	assert.Equal(t, "low-item", out[1].Content)
}

func TestGetContextDiscardsTimedOutSource(t *testing.T) {
	slow := &stubSource{sourceType: "slow", priority: 10, delay: 200 * time.Millisecond, items: []contextcore.Item{{Content: "slow-item", Source: "slow", Type: "t"}}}
	fast := &stubSource{sourceType: "fast", priority: 1, items: []contextcore.Item{{Content: "fast-item", Source: "fast", Type: "t"}}}

	m := New(slow, fast)
	out := m.GetContext(context.Background(), "query", sources.Options{TimeoutMs: 20})

	require.Len(t, out, 1)
	assert.Equal(t, "fast-item", out[0].Content)
}

// stubbornSource ignores ctx entirely and always sleeps the full delay,
// modeling the spec's assumed non-cooperative source: one whose
// underlying work is not actually cancelled by a context deadline.
type stubbornSource struct {
	sourceType string
	priority   int
	delay      time.Duration
	items      []contextcore.Item
}

func (s *stubbornSource) SourceType() string { return s.sourceType }
func (s *stubbornSource) Priority() int      { return s.priority }
func (s *stubbornSource) GetContext(_ context.Context, _ string, _ sources.Options) ([]contextcore.Item, error) {
	time.Sleep(s.delay)
	return s.items, nil
}

func TestGetContextReturnsWithinTimeoutDespiteNonCooperativeSource(t *testing.T) {
	stubborn := &stubbornSource{sourceType: "stubborn", priority: 10, delay: 300 * time.Millisecond, items: []contextcore.Item{{Content: "late-item", Source: "stubborn", Type: "t"}}}
	fast := &stubSource{sourceType: "fast", priority: 1, items: []contextcore.Item{{Content: "fast-item", Source: "fast", Type: "t"}}}

	m := New(stubborn, fast)

	start := time.Now()
	out := m.GetContext(context.Background(), "query", sources.Options{TimeoutMs: 20})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 150*time.Millisecond, "GetContext must return around the timeout, not wait for the stubborn source")
	require.Len(t, out, 1)
	assert.Equal(t, "fast-item", out[0].Content)
}

func TestGetContextFiltersLowConfidence(t *testing.T) {
	low := 0.1
	src := &stubSource{sourceType: "s", priority: 1, items: []contextcore.Item{
		{Content: "low-confidence", Source: "s", Type: "t", Metadata: contextcore.ItemMetadata{Confidence: &low}},
	}}
	m := New(src)
	out := m.GetContext(context.Background(), "query", sources.Options{TimeoutMs: 500, MinConfidence: 0.5})
	assert.Empty(t, out)
}

func TestGetContextTruncatesToMaxResults(t *testing.T) {
	src := &stubSource{sourceType: "s", priority: 1, items: []contextcore.Item{
		{Content: "a", Source: "s", Type: "t"},
		{Content: "b", Source: "s", Type: "t"},
		{Content: "c", Source: "s", Type: "t"},
	}}
	m := New(src)
	out := m.GetContext(context.Background(), "query", sources.Options{TimeoutMs: 500, MaxResults: 2})
	assert.Len(t, out, 2)
}

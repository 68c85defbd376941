package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mardukros/mardukros-sub000/memorycore"
)

func TestDocumentSourceMatchesByToken(t *testing.T) {
	src := NewDocumentSource(5)
	src.AddDocument("doc1", "The quick brown fox")

	items, err := src.GetContext(context.Background(), "brown", Options{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "internal:documents", items[0].Source)
}

func TestActivitySourceDiscardsOldRecords(t *testing.T) {
	src := NewActivitySource(5)
	src.Record(ActivityRecord{
		Timestamp:   time.Now().Add(-8 * 24 * time.Hour),
		Description: "reviewed pull request",
	})
	src.Record(ActivityRecord{
		Timestamp:   time.Now(),
		Description: "reviewed another pull request",
	})

	items, err := src.GetContext(context.Background(), "reviewed", Options{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestActivitySourceRingBufferCaps(t *testing.T) {
	src := NewActivitySource(5)
	for i := 0; i < activityRingCapacity+10; i++ {
		src.Record(ActivityRecord{Timestamp: time.Now(), Description: "ping"})
	}
	assert.Len(t, src.records, activityRingCapacity)
}

func TestWebSourceFailsWhenNotConfigured(t *testing.T) {
	src := NewWebSource(1)
	_, err := src.GetContext(context.Background(), "q", Options{})
	assert.ErrorIs(t, err, ErrWebSourceNotConfigured)
}

func TestMemoryAdapterFormatsFactualContent(t *testing.T) {
	store := memorycore.NewFactualStore(memorycore.Options[string]{Capacity: 10})
	item := memorycore.NewItem("", "factual", "paris is the capital of france", memorycore.Metadata{})
	require.NoError(t, store.Store(context.Background(), item))

	adapter := NewMemoryAdapter(store, "factual", "memory:factual", 5, FormatFactual)
	items, err := adapter.GetContext(context.Background(), "paris", Options{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "paris is the capital of france", items[0].Content)
	assert.Equal(t, "memory:factual", items[0].Source)
}

package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string
	Value int
}

func newTestStore(t *testing.T) *Store[record] {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "items")
	backup := filepath.Join(t.TempDir(), "backups")
	return NewStore[record](dir, backup, Options{MaxBatchSize: 3, SnapshotRetained: 2})
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	items := []record{{ID: "a", Value: 1}, {ID: "b", Value: 2}}

	require.NoError(t, s.Save(ctx, items))
	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, items, loaded)
}

func TestSaveBatchedWhenOverThreshold(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	items := make([]record, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, record{ID: string(rune('a' + i)), Value: i})
	}

	require.NoError(t, s.Save(ctx, items))
	_, err := os.Stat(filepath.Join(s.batchesDir(), "index.json"))
	require.NoError(t, err)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 10)
}

func TestLoadFallsBackToBackupOnChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	original := []record{{ID: "a", Value: 1}}
	require.NoError(t, s.Save(ctx, original))

	// A second save creates a backup of the first file before overwriting.
	require.NoError(t, s.Save(ctx, []record{{ID: "a", Value: 2}}))

	// Corrupt the checksum sidecar so the current file looks tampered.
	require.NoError(t, os.WriteFile(s.checksumPath(), []byte("deadbeef"), 0o644))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a", loaded[0].ID)
}

func TestSnapshotCreateAndRestore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	items := []record{{ID: "a", Value: 1}}

	ts, err := s.CreateSnapshot(ctx, items)
	require.NoError(t, err)
	assert.NotEmpty(t, ts)

	restored, err := s.RestoreSnapshot(ctx, ts)
	require.NoError(t, err)
	assert.Equal(t, items, restored)
}

func TestSnapshotRetentionPrunesOldest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.CreateSnapshot(ctx, []record{{ID: "a", Value: i}})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	timestamps, err := s.ListSnapshots()
	require.NoError(t, err)
	assert.Len(t, timestamps, 2)
}

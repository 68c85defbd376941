package persistence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mardukros/mardukros-sub000/xerrors"
)

// snapshotTimestamp renders t as ISO-8601 with ':' and '.' replaced by
// '-' so it is filesystem-safe on every platform, per spec §4.3. The
// format stays lexicographically sortable in timestamp order.
func snapshotTimestamp(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05.000Z")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, ".", "-")
	return s
}

func (s *Store[T]) snapshotPath(ts string) string {
	return filepath.Join(s.snapshotsDir(), "snapshot-"+ts+".json")
}

// CreateSnapshot writes an immutable, checksummed copy of items under
// snapshots/, named by timestamp, then prunes older snapshots beyond
// SnapshotRetained (newest-first retention, spec §4.3).
func (s *Store[T]) CreateSnapshot(ctx context.Context, items []T) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ts := snapshotTimestamp(time.Now())
	data, err := json.Marshal(items)
	if err != nil {
		return "", xerrors.NewMemoryPersistenceError("snapshot-marshal", err)
	}
	path := s.snapshotPath(ts)
	if err := writeAtomic(path, data); err != nil {
		return "", xerrors.NewMemoryPersistenceError("snapshot-write", err)
	}
	if err := writeAtomic(path+checksumSuffix, []byte(checksum(data))); err != nil {
		return "", xerrors.NewMemoryPersistenceError("snapshot-checksum", err)
	}
	s.pruneSnapshots()
	return ts, nil
}

// RestoreSnapshot reads back the snapshot named by timestamp, verifying
// its checksum sidecar when present.
func (s *Store[T]) RestoreSnapshot(ctx context.Context, timestamp string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.snapshotPath(timestamp)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.NewDataIntegrityError(path, err)
	}
	if sum, err := os.ReadFile(path + checksumSuffix); err == nil {
		if string(sum) != checksum(data) {
			return nil, xerrors.NewDataIntegrityError(path, nil)
		}
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, xerrors.NewMemoryPersistenceError("snapshot-unmarshal", err)
	}
	return items, nil
}

// ListSnapshots returns known snapshot timestamps, newest first.
func (s *Store[T]) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(s.snapshotsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.NewMemoryPersistenceError("list-snapshots", err)
	}
	var timestamps []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "snapshot-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ts := strings.TrimSuffix(strings.TrimPrefix(name, "snapshot-"), ".json")
		timestamps = append(timestamps, ts)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(timestamps)))
	return timestamps, nil
}

func (s *Store[T]) pruneSnapshots() {
	timestamps, err := s.ListSnapshots()
	if err != nil || len(timestamps) <= s.opt.SnapshotRetained {
		return
	}
	for _, ts := range timestamps[s.opt.SnapshotRetained:] {
		path := s.snapshotPath(ts)
		_ = os.Remove(path)
		_ = os.Remove(path + checksumSuffix)
	}
}

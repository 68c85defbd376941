// Package persistence implements the atomic write/checksum/backup/batch/
// snapshot engine of spec §4.2-§4.3, shared by every memory subsystem and
// the context cache (spec §3 "persisted cache file and its snapshots are
// exclusively owned by the Context Persistence component").
//
// Write discipline: write to "items.json.tmp", optionally write a SHA-256
// checksum sidecar, rename to "items.json" (atomic on the same
// filesystem), then promote the checksum sidecar. On read, a checksum
// sidecar is verified before parsing; on mismatch the newest timestamped
// backup under _backups/<subsystem>/ is tried instead.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/mardukros/mardukros-sub000/xerrors"
)

const (
	itemsFileName    = "items.json"
	checksumSuffix   = ".checksum"
	tmpSuffix        = ".tmp"
	defaultRetries   = 3
	defaultMaxBatch  = 5000
	defaultSnapKeep  = 10
)

// Options configures a Store.
type Options struct {
	MaxBatchSize     int
	Retries          int
	SnapshotRetained int
}

func (o Options) withDefaults() Options {
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = defaultMaxBatch
	}
	if o.Retries <= 0 {
		o.Retries = defaultRetries
	}
	if o.SnapshotRetained <= 0 {
		o.SnapshotRetained = defaultSnapKeep
	}
	return o
}

// Store persists a slice of T under dir, with best-effort backups under
// backupDir, guarded by an advisory file lock (gofrs/flock) against
// concurrent saves from the debounce path of spec §5.
type Store[T any] struct {
	dir       string
	backupDir string
	opt       Options
	lock      *flock.Flock
}

// NewStore creates a Store rooted at dir, with backups written to
// backupDir (e.g. "<dataDir>/memory/_backups/<subsystem>").
func NewStore[T any](dir, backupDir string, opt Options) *Store[T] {
	opt = opt.withDefaults()
	return &Store[T]{
		dir:       dir,
		backupDir: backupDir,
		opt:       opt,
		lock:      flock.New(filepath.Join(dir, ".lock")),
	}
}

func (s *Store[T]) itemsPath() string    { return filepath.Join(s.dir, itemsFileName) }
func (s *Store[T]) checksumPath() string { return s.itemsPath() + checksumSuffix }
func (s *Store[T]) batchesDir() string   { return filepath.Join(s.dir, "batches") }
func (s *Store[T]) snapshotsDir() string { return filepath.Join(s.dir, "snapshots") }

func withRetry(retries int, fn func() error) error {
	var err error
	backoff := 10 * time.Millisecond
	for attempt := 0; attempt < retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}

// Save atomically persists items, backing up the previous file first
// (best-effort — a backup failure is silently ignored, never fatal)
// and switching to batched storage once len(items) exceeds MaxBatchSize.
func (s *Store[T]) Save(ctx context.Context, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return xerrors.NewMemoryPersistenceError("mkdir", err)
	}

	locked, err := s.lock.TryLock()
	if err != nil {
		return xerrors.NewMemoryPersistenceError("lock", err)
	}
	if !locked {
		// A save is already in progress; spec §5 says a concurrent save
		// request is dropped after a metadata-only marker is written.
		return s.writeSaveMarker()
	}
	defer s.lock.Unlock()

	s.backupBestEffort()

	if len(items) > s.opt.MaxBatchSize {
		return withRetry(s.opt.Retries, func() error { return s.saveBatched(items) })
	}
	return withRetry(s.opt.Retries, func() error { return s.saveSingle(items) })
}

func (s *Store[T]) writeSaveMarker() error {
	marker := filepath.Join(s.dir, ".save-pending")
	return os.WriteFile(marker, []byte(time.Now().UTC().Format(time.RFC3339Nano)), 0o644)
}

func (s *Store[T]) saveSingle(items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return xerrors.NewMemoryPersistenceError("marshal", err)
	}
	sumTmp := s.checksumPath() + tmpSuffix
	if err := os.WriteFile(sumTmp, []byte(checksum(data)), 0o644); err != nil {
		return xerrors.NewMemoryPersistenceError("checksum", err)
	}
	if err := writeAtomic(s.itemsPath(), data); err != nil {
		return xerrors.NewMemoryPersistenceError("write", err)
	}
	if err := os.Rename(sumTmp, s.checksumPath()); err != nil {
		return xerrors.NewMemoryPersistenceError("checksum", err)
	}
	// Large-collection mode no longer applies; clean up any stale batches.
	_ = os.RemoveAll(s.batchesDir())
	return nil
}

type batchIndex struct {
	Batches []string `json:"batches"`
	Total   int      `json:"total"`
}

// saveBatched implements the "Large-collection mode" of spec §4.2:
// items split into batches/batch_NNNNN.json, each checksummed
// independently, plus an index.json listing them in order.
func (s *Store[T]) saveBatched(items []T) error {
	if err := os.MkdirAll(s.batchesDir(), 0o755); err != nil {
		return xerrors.NewMemoryPersistenceError("mkdir", err)
	}
	_ = os.RemoveAll(s.batchesDir())
	if err := os.MkdirAll(s.batchesDir(), 0o755); err != nil {
		return xerrors.NewMemoryPersistenceError("mkdir", err)
	}

	var names []string
	for i := 0; i < len(items); i += s.opt.MaxBatchSize {
		end := min(i+s.opt.MaxBatchSize, len(items))
		chunk := items[i:end]
		name := fmt.Sprintf("batch_%05d.json", i/s.opt.MaxBatchSize)
		data, err := json.Marshal(chunk)
		if err != nil {
			return xerrors.NewMemoryPersistenceError("marshal", err)
		}
		path := filepath.Join(s.batchesDir(), name)
		if err := writeAtomic(path, data); err != nil {
			return xerrors.NewMemoryPersistenceError("write", err)
		}
		if err := writeAtomic(path+checksumSuffix, []byte(checksum(data))); err != nil {
			return xerrors.NewMemoryPersistenceError("checksum", err)
		}
		names = append(names, name)
	}

	idx, err := json.Marshal(batchIndex{Batches: names, Total: len(items)})
	if err != nil {
		return xerrors.NewMemoryPersistenceError("marshal", err)
	}
	return writeAtomic(filepath.Join(s.batchesDir(), "index.json"), idx)
}

// backupBestEffort copies the current items.json (if any) into
// backupDir under a timestamped name. Failures are swallowed: backups
// are explicitly best-effort per spec §4.2.
func (s *Store[T]) backupBestEffort() {
	data, err := os.ReadFile(s.itemsPath())
	if err != nil {
		return
	}
	_ = os.MkdirAll(s.backupDir, 0o755)
	name := fmt.Sprintf("%s.bak", snapshotTimestamp(time.Now()))
	_ = os.WriteFile(filepath.Join(s.backupDir, name), data, 0o644)
}

// Load reads the persisted items, verifying the checksum sidecar when
// present and falling back to the newest backup on mismatch. A missing
// store (first run) returns an empty slice, not an error.
func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(s.batchesDir(), "index.json")); err == nil {
		return s.loadBatched()
	}

	data, err := os.ReadFile(s.itemsPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.NewMemoryPersistenceError("read", err)
	}

	if sum, err := os.ReadFile(s.checksumPath()); err == nil {
		if string(sum) != checksum(data) {
			if restored, ok := s.loadNewestBackup(); ok {
				return restored, nil
			}
			return nil, xerrors.NewDataIntegrityError(s.itemsPath(), nil)
		}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, xerrors.NewMemoryPersistenceError("unmarshal", err)
	}
	return items, nil
}

func (s *Store[T]) loadBatched() ([]T, error) {
	raw, err := os.ReadFile(filepath.Join(s.batchesDir(), "index.json"))
	if err != nil {
		return nil, xerrors.NewMemoryPersistenceError("read-index", err)
	}
	var idx batchIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, xerrors.NewMemoryPersistenceError("unmarshal-index", err)
	}
	items := make([]T, 0, idx.Total)
	for _, name := range idx.Batches {
		path := filepath.Join(s.batchesDir(), name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, xerrors.NewMemoryPersistenceError("read-batch", err)
		}
		if sum, err := os.ReadFile(path + checksumSuffix); err == nil {
			if string(sum) != checksum(data) {
				return nil, xerrors.NewDataIntegrityError(path, nil)
			}
		}
		var chunk []T
		if err := json.Unmarshal(data, &chunk); err != nil {
			return nil, xerrors.NewMemoryPersistenceError("unmarshal-batch", err)
		}
		items = append(items, chunk...)
	}
	return items, nil
}

func (s *Store[T]) loadNewestBackup() ([]T, bool) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".bak") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	data, err := os.ReadFile(filepath.Join(s.backupDir, names[0]))
	if err != nil {
		return nil, false
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

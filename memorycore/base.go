package memorycore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mardukros/mardukros-sub000/persistence"
	"github.com/mardukros/mardukros-sub000/xerrors"
	"github.com/mardukros/mardukros-sub000/xset"
)

// MatchFunc implements a subsystem's matchesQuery predicate: given an
// item and the query's normalized (lowercased, trimmed) term, report
// whether the item should be included in the result.
type MatchFunc[C any] func(item *Item[C], normalizedTerm string) bool

// IndexFieldsFunc extracts the declared-index field values for an item,
// e.g. {"tags": ["math", "physics"], "category": ["science"]} — used to
// maintain the field->value->ids multimap spec §4.1 describes.
type IndexFieldsFunc[C any] func(item *Item[C]) map[string][]string

// Store is the uniform capability interface spec §9 calls for in place
// of an inheritance hierarchy: query/store/update/delete plus snapshot
// lifecycle, implemented once by Base and specialized per subsystem only
// through MatchFunc/IndexFieldsFunc.
type Store[C any] interface {
	Query(ctx context.Context, q *Query) (*Response[C], error)
	Store(ctx context.Context, item *Item[C]) error
	Update(ctx context.Context, id string, patch func(*Item[C])) error
	Delete(ctx context.Context, id string) error
	Get(id string) (*Item[C], bool)
	Size() int
	CreateSnapshot(ctx context.Context) (string, error)
	RestoreSnapshot(ctx context.Context, timestamp string) error
}

// Options configures a Base store.
type Options[C any] struct {
	Capacity     int
	MatchFn      MatchFunc[C]
	IndexFields  IndexFieldsFunc[C]
	Persistence  *persistence.Store[Item[C]] // nil disables persistence
	AllowedTypes []string
}

// base is the shared implementation backing every concrete subsystem
// (factual.go, event.go, concept.go, workflow.go). It owns its item map
// exclusively (spec §5 "each Memory Subsystem owns its map exclusively").
type base[C any] struct {
	mu       sync.RWMutex
	items    map[string]*Item[C]
	capacity int
	matchFn  MatchFunc[C]
	indexFn  IndexFieldsFunc[C]
	allowed  map[string]bool

	typeIndex  map[string]xset.Set[string]
	fieldIndex map[string]map[string]xset.Set[string]

	persist *persistence.Store[Item[C]]
}

func newBase[C any](opt Options[C]) *base[C] {
	allowed := make(map[string]bool, len(opt.AllowedTypes))
	for _, t := range opt.AllowedTypes {
		allowed[t] = true
	}
	return &base[C]{
		items:      make(map[string]*Item[C]),
		capacity:   opt.Capacity,
		matchFn:    opt.MatchFn,
		indexFn:    opt.IndexFields,
		allowed:    allowed,
		typeIndex:  make(map[string]xset.Set[string]),
		fieldIndex: make(map[string]map[string]xset.Set[string]),
		persist:    opt.Persistence,
	}
}

func (b *base[C]) Get(id string) (*Item[C], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	it, ok := b.items[id]
	return it, ok
}

func (b *base[C]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

func (b *base[C]) validateItem(item *Item[C]) error {
	if item == nil || item.ID == "" {
		return xerrors.NewValidationError("item.id", nil)
	}
	if len(b.allowed) > 0 && !b.allowed[item.Type] {
		return xerrors.NewValidationError("item.type", nil)
	}
	return nil
}

// Store validates and inserts item, evicting the oldest 10% by
// lastAccessed first if capacity has been reached (spec §4.1 capacity
// policy, with id-ascending tie-break for determinism).
func (b *base[C]) Store(ctx context.Context, item *Item[C]) error {
	if err := b.validateItem(item); err != nil {
		return err
	}
	b.mu.Lock()
	if len(b.items) >= b.capacity && b.capacity > 0 {
		b.evictOldestLocked()
	}
	b.items[item.ID] = item
	b.indexLocked(item)
	b.mu.Unlock()
	return b.saveAsync(ctx)
}

// evictOldestLocked evicts floor(10% of size) items, at least one, with
// the smallest
// lastAccessed, breaking ties by ascending id. Caller holds b.mu.
func (b *base[C]) evictOldestLocked() {
	n := len(b.items)
	if n == 0 {
		return
	}
	evictCount := n / 10
	if evictCount == 0 {
		evictCount = 1
	}
	type cand struct {
		id   string
		last time.Time
	}
	cands := make([]cand, 0, n)
	for id, it := range b.items {
		cands = append(cands, cand{id: id, last: it.LastAccessed()})
	}
	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].last.Equal(cands[j].last) {
			return cands[i].last.Before(cands[j].last)
		}
		return cands[i].id < cands[j].id
	})
	for i := 0; i < evictCount && i < len(cands); i++ {
		b.removeLocked(cands[i].id)
	}
}

func (b *base[C]) indexLocked(item *Item[C]) {
	if b.typeIndex[item.Type] == nil {
		b.typeIndex[item.Type] = xset.NewHashSet[string]()
	}
	b.typeIndex[item.Type].Add(item.ID)

	if b.indexFn == nil {
		return
	}
	for field, values := range b.indexFn(item) {
		if b.fieldIndex[field] == nil {
			b.fieldIndex[field] = make(map[string]xset.Set[string])
		}
		for _, v := range values {
			if b.fieldIndex[field][v] == nil {
				b.fieldIndex[field][v] = xset.NewHashSet[string]()
			}
			b.fieldIndex[field][v].Add(item.ID)
		}
	}
}

func (b *base[C]) removeLocked(id string) {
	item, ok := b.items[id]
	if !ok {
		return
	}
	delete(b.items, id)
	if set := b.typeIndex[item.Type]; set != nil {
		set.Remove(id)
	}
	if b.indexFn == nil {
		return
	}
	for field, values := range b.indexFn(item) {
		for _, v := range values {
			if set := b.fieldIndex[field][v]; set != nil {
				set.Remove(id)
			}
		}
	}
}

// Update shallow-merges patch into the existing item, re-indexes, and
// saves. A missing id is a no-op, per spec §4.1.
func (b *base[C]) Update(ctx context.Context, id string, patch func(*Item[C])) error {
	b.mu.Lock()
	item, ok := b.items[id]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	b.removeLocked(id)
	patch(item)
	if err := b.validateItem(item); err != nil {
		b.mu.Unlock()
		return err
	}
	b.items[id] = item
	b.indexLocked(item)
	b.mu.Unlock()
	return b.saveAsync(ctx)
}

func (b *base[C]) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	b.removeLocked(id)
	b.mu.Unlock()
	return b.saveAsync(ctx)
}

// Query consults the type index for candidate ids, drops candidates
// that fail any numeric or membership filter (both read from the item's
// metadata), then runs the subsystem's matchesQuery predicate over the
// survivors (spec §4.1). The field index is not consulted here.
func (b *base[C]) Query(ctx context.Context, q *Query) (*Response[C], error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	candidates := b.typeIndex[q.Type]
	var ids []string
	if candidates != nil {
		ids = candidates.ToSlice()
	}

	term := q.NormalizedTerm()
	out := make([]*Item[C], 0, len(ids))
	for _, id := range ids {
		item := b.items[id]
		if item == nil {
			continue
		}
		if !b.passesFilters(item, q.Filters) {
			continue
		}
		if term != "" && b.matchFn != nil && !b.matchFn(item, term) {
			continue
		}
		out = append(out, item)
	}
	return &Response[C]{Items: out, Total: len(out), Checked: time.Now()}, nil
}

func (b *base[C]) passesFilters(item *Item[C], filters map[string]Filter) bool {
	for field, f := range filters {
		if f.Numeric != nil {
			if !f.Numeric.Matches(item.Metadata.Float64(field, 0)) {
				return false
			}
		}
		if f.Membership != nil {
			values := item.Metadata.StringSlice(field)
			if !containsAny(values, f.Membership.Values) {
				return false
			}
		}
	}
	return true
}

func containsAny(haystack, needles []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		set[h] = true
	}
	for _, n := range needles {
		if set[n] {
			return true
		}
	}
	return false
}

func (b *base[C]) saveAsync(ctx context.Context) error {
	if b.persist == nil {
		return nil
	}
	b.mu.RLock()
	snapshot := make([]Item[C], 0, len(b.items))
	for _, it := range b.items {
		snapshot = append(snapshot, *it)
	}
	b.mu.RUnlock()
	if err := b.persist.Save(ctx, snapshot); err != nil {
		return xerrors.NewMemoryPersistenceError("save", err)
	}
	return nil
}

// CreateSnapshot delegates to the persistence layer's rolling-snapshot
// store (spec §4.3).
func (b *base[C]) CreateSnapshot(ctx context.Context) (string, error) {
	if b.persist == nil {
		return "", xerrors.NewMemoryPersistenceError("snapshot", nil)
	}
	b.mu.RLock()
	snapshot := make([]Item[C], 0, len(b.items))
	for _, it := range b.items {
		snapshot = append(snapshot, *it)
	}
	b.mu.RUnlock()
	return b.persist.CreateSnapshot(ctx, snapshot)
}

// RestoreSnapshot replaces the in-memory store with the snapshot's
// contents, silently skipping entries that fail item validation (spec
// §4.3 / §8 invariant 6).
func (b *base[C]) RestoreSnapshot(ctx context.Context, timestamp string) error {
	if b.persist == nil {
		return xerrors.NewMemoryPersistenceError("restore", nil)
	}
	items, err := b.persist.RestoreSnapshot(ctx, timestamp)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.items = make(map[string]*Item[C])
	b.typeIndex = make(map[string]xset.Set[string])
	b.fieldIndex = make(map[string]map[string]xset.Set[string])
	for i := range items {
		it := items[i]
		if b.validateItem(&it) != nil {
			continue
		}
		b.items[it.ID] = &it
		b.indexLocked(&it)
	}
	b.mu.Unlock()
	return nil
}

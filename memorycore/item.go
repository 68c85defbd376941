// Package memorycore implements the four typed memory subsystems of
// spec §3/§4.1 (factual, event, concept, workflow) behind one uniform
// query/store/update/delete contract, with capacity-bound eviction,
// field indexing, and pluggable persistence.
//
// Per spec §9 Design Notes, subsystem-specific behavior is not expressed
// as an inheritance hierarchy. Instead a single generic base[C] carries
// everything subsystem-agnostic (capacity, indexing, validation
// plumbing, persistence), parameterized by each subsystem's content
// type C, and each subsystem supplies a MatchFunc[C] implementing its
// own matchesQuery predicate.
package memorycore

import (
	"time"

	"github.com/google/uuid"

	"github.com/mardukros/mardukros-sub000/kv"
)

// Metadata is the free-form metadata map of spec §3, with well-known
// keys (lastAccessed, tags, confidence, timestamp, category, source)
// read through the lenient coercion helpers on kv.KSVA.
type Metadata = kv.KSVA

// Item is a Memory Item (spec §3) holding subsystem-specific content C.
type Item[C any] struct {
	ID       string
	Type     string
	Content  C
	Metadata Metadata
}

// NewItem creates an Item, generating a stable id via uuid when id is
// empty.
func NewItem[C any](id, typ string, content C, meta Metadata) *Item[C] {
	if id == "" {
		id = uuid.NewString()
	}
	if meta == nil {
		meta = kv.NewKSVA()
	}
	return &Item[C]{ID: id, Type: typ, Content: content, Metadata: meta}
}

// LastAccessed reads metadata["lastAccessed"], defaulting to the zero
// time (which sorts first, i.e. "evicted first" per spec §4.1 capacity
// policy: "missing values treated as 0").
func (i *Item[C]) LastAccessed() time.Time {
	return i.Metadata.Time("lastAccessed", time.Time{})
}

// Touch sets metadata["lastAccessed"] to now, honoring the invariant
// that lastAccessed is monotonically increasing within a process.
func (i *Item[C]) Touch(now time.Time) {
	i.Metadata.Put("lastAccessed", now)
}

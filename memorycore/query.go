package memorycore

import (
	"strings"
	"time"

	"github.com/mardukros/mardukros-sub000/xerrors"
)

// NumericFilter is a min/max predicate on a numeric metadata field, e.g.
// filters["complexity"] = NumericFilter{Max: ptr(3)}.
type NumericFilter struct {
	Min *float64
	Max *float64
}

// Matches reports whether v satisfies the min/max bounds that are set.
func (f NumericFilter) Matches(v float64) bool {
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

// MembershipFilter requires a field (treated as a set of strings) to
// contain at least one of Values.
type MembershipFilter struct {
	Values []string
}

// Filter is either a NumericFilter or a MembershipFilter on a named
// field; exactly one of Numeric/Membership should be non-nil.
type Filter struct {
	Numeric    *NumericFilter
	Membership *MembershipFilter
}

// Query is a Memory Query (spec §3): a subsystem type, a free-text term,
// and optional field filters.
type Query struct {
	Type    string
	Term    string
	Filters map[string]Filter
}

// Validate checks the minimal shape spec §4.1 requires ("must have type
// and term, filters must be a mapping").
func (q *Query) Validate() error {
	if q == nil {
		return xerrors.NewValidationError("query", nil)
	}
	if q.Type == "" {
		return xerrors.NewValidationError("query.type", nil)
	}
	if strings.TrimSpace(q.Term) == "" {
		return xerrors.NewValidationError("query.term", nil)
	}
	return nil
}

// NormalizedTerm lowercases and trims the query term for case-insensitive
// substring matching, per spec §4.1 matchesQuery rules.
func (q *Query) NormalizedTerm() string {
	return strings.ToLower(strings.TrimSpace(q.Term))
}

// Response is the uniform query response of spec §4.1.
type Response[C any] struct {
	Items    []*Item[C]
	Total    int
	Checked  time.Time
}

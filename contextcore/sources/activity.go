package sources

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mardukros/mardukros-sub000/contextcore"
)

const (
	activityRingCapacity = 50
	activityMaxAge       = 7 * 24 * time.Hour
)

// ActivityRecord is one entry in the user-activity ring buffer (spec §4.6).
type ActivityRecord struct {
	Timestamp   time.Time
	Description string
	Type        string
	Tags        []string
}

// ActivitySource is a ring buffer of up to 50 user-activity records,
// matching by token overlap against description/tags and discarding
// entries older than 7 days (spec §4.6).
type ActivitySource struct {
	mu       sync.Mutex
	records  []ActivityRecord
	priority int
}

// NewActivitySource creates an empty ActivitySource at the given
// fan-out priority.
func NewActivitySource(priority int) *ActivitySource {
	return &ActivitySource{priority: priority}
}

// Record appends rec, evicting the oldest entry once the ring buffer
// reaches its 50-record capacity.
func (a *ActivitySource) Record(rec ActivityRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	if len(a.records) > activityRingCapacity {
		a.records = a.records[len(a.records)-activityRingCapacity:]
	}
}

func (a *ActivitySource) SourceType() string { return "internal:activity" }
func (a *ActivitySource) Priority() int      { return a.priority }

func (a *ActivitySource) GetContext(_ context.Context, query string, _ Options) ([]contextcore.Item, error) {
	tokens := tokenize(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	var out []contextcore.Item
	for _, rec := range a.records {
		if now.Sub(rec.Timestamp) > activityMaxAge {
			continue
		}
		if !overlaps(tokens, rec.Description, rec.Tags) {
			continue
		}
		ts := rec.Timestamp
		out = append(out, contextcore.Item{
			Content: rec.Description,
			Source:  a.SourceType(),
			Type:    rec.Type,
			Metadata: contextcore.ItemMetadata{
				Timestamp: &ts,
				Tags:      rec.Tags,
			},
		})
	}
	return out, nil
}

func overlaps(tokens []string, description string, tags []string) bool {
	lowered := strings.ToLower(description)
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			return true
		}
		for _, tag := range tags {
			if strings.EqualFold(tag, tok) {
				return true
			}
		}
	}
	return false
}

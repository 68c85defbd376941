// Package sources implements the Context Sources of spec §4.6: memory
// adapters, a document source, a user-activity source, and an optional
// web source, all behind one Source interface.
package sources

import (
	"context"
	"time"

	"github.com/mardukros/mardukros-sub000/contextcore"
)

// Options parameterizes a single getContext call (spec §4.6).
type Options struct {
	MaxSourcesPerQuery int
	TimeoutMs          int
	MinConfidence      float64
	Recency            string // "recent" | "any"
	MaxResults         int

	// RecencyWindow backs the Recency=="recent" filter. The Coordinator
	// fills it from config.AI.RecencyWindow (spec §9 Open Question
	// resolution: the source manager's recency filter and the validator's
	// outdated threshold share one configured window). Zero makes the
	// source manager use its own 30-day default.
	RecencyWindow time.Duration
}

// Source is the uniform context source contract (spec §4.6), grounded
// on the teacher's single-method document.Reader interface.
type Source interface {
	GetContext(ctx context.Context, query string, opt Options) ([]contextcore.Item, error)
	SourceType() string
	Priority() int
}

func tokenize(s string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			flush()
			continue
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

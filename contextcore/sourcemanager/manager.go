// Package sourcemanager implements the Context Source Manager of spec
// §4.6: fan out to the top-N sources by priority, each under its own
// timeout, then filter and truncate the combined result.
//
// Grounded on the teacher's flow.Parallel[I,O] (flow/parallel.go): a
// fixed pool of concurrent processors whose stragglers are discarded
// once a wait condition is satisfied, generalized here from "wait for
// N of M successes" to "wait out a fixed per-source timeout, keep
// whatever returned in time."
package sourcemanager

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mardukros/mardukros-sub000/contextcore"
	"github.com/mardukros/mardukros-sub000/contextcore/sources"
)

const defaultTimeoutMs = 2000

// Manager fans out GetContext calls across registered sources.
type Manager struct {
	sources []sources.Source
}

// New creates a Manager over the given sources, in no particular order
// (Priority() determines fan-out order per call).
func New(srcs ...sources.Source) *Manager {
	return &Manager{sources: srcs}
}

// GetContext implements spec §4.6's fan-out contract: the top
// maxSourcesPerQuery sources by priority are queried concurrently,
// each bounded by its own timeoutMs; a timeout yields an empty result
// from that source without surfacing an error to the caller. Results
// preserve priority order across sources and input order within a
// source, then are filtered by confidence/recency and truncated to
// maxResults.
func (m *Manager) GetContext(ctx context.Context, query string, opt sources.Options) []contextcore.Item {
	if opt.TimeoutMs <= 0 {
		opt.TimeoutMs = defaultTimeoutMs
	}
	ranked := m.rankedSources(opt.MaxSourcesPerQuery)
	timeout := time.Duration(opt.TimeoutMs) * time.Millisecond

	// Each source runs in its own goroutine and reports back on a
	// channel buffered to hold every slot, so a source that ignores
	// sctx's cancellation and keeps running after the deadline never
	// blocks its goroutine on a send nor leaks it waiting for a
	// reader. The manager itself races the results against one shared
	// timer and returns the instant it fires, per spec §4.6/§5:
	// "timeouts do not cancel the underlying work — late results are
	// discarded on return." A cooperative source still gets sctx so it
	// can stop early, but the manager's own bound never depends on
	// that cooperation.
	type sourceResult struct {
		idx   int
		items []contextcore.Item
	}
	results := make(chan sourceResult, len(ranked))
	for i, src := range ranked {
		i, src := i, src
		go func() {
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			items, err := src.GetContext(sctx, query, opt)
			if err != nil {
				items = nil
			}
			results <- sourceResult{idx: i, items: items}
		}()
	}

	perSource := make([][]contextcore.Item, len(ranked))
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	remaining := len(ranked)
collect:
	for remaining > 0 {
		select {
		case res := <-results:
			perSource[res.idx] = res.items
			remaining--
		case <-timer.C:
			break collect
		}
	}

	// Priority order across sources, source-internal order within a
	// source (spec §5 "final Context Items are deterministically
	// ordered by source priority then source-internal order").
	combined := lo.FlatMap(perSource, func(items []contextcore.Item, _ int) []contextcore.Item {
		return items
	})
	return applyFilters(combined, opt)
}

// SourceCount reports how many sources are registered, for status/stats
// reporting (spec §4.8 getCacheStats "source count").
func (m *Manager) SourceCount() int { return len(m.sources) }

func (m *Manager) rankedSources(maxSources int) []sources.Source {
	ranked := make([]sources.Source, len(m.sources))
	copy(ranked, m.sources)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority() > ranked[j].Priority()
	})
	if maxSources > 0 && maxSources < len(ranked) {
		ranked = ranked[:maxSources]
	}
	return ranked
}

const defaultRecencyWindow = 30 * 24 * time.Hour

func applyFilters(items []contextcore.Item, opt sources.Options) []contextcore.Item {
	window := opt.RecencyWindow
	if window <= 0 {
		window = defaultRecencyWindow
	}
	out := lo.Filter(items, func(it contextcore.Item, _ int) bool {
		if it.Metadata.Confidence != nil && *it.Metadata.Confidence < opt.MinConfidence {
			return false
		}
		if strings.EqualFold(opt.Recency, "recent") && it.Metadata.Timestamp != nil {
			if time.Since(*it.Metadata.Timestamp) > window {
				return false
			}
		}
		return true
	})
	if opt.MaxResults > 0 && len(out) > opt.MaxResults {
		out = out[:opt.MaxResults]
	}
	return out
}

// Package coordinator implements the AI Coordinator of spec §4.8: the
// component that turns a caller's query plus context into a ranked
// prompt, calls the LLM client, and records the interaction in event
// memory. It is the one place every other Context Orchestrator piece
// (cache, source manager, embedding, validator) comes together.
//
// Grounded on the teacher's generation.Service orchestration shape: a
// struct holding its collaborators by interface, one public entry point
// per use case, private helpers for each pipeline stage.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mardukros/mardukros-sub000/cache"
	"github.com/mardukros/mardukros-sub000/config"
	"github.com/mardukros/mardukros-sub000/contextcore"
	"github.com/mardukros/mardukros-sub000/contextcore/sourcemanager"
	"github.com/mardukros/mardukros-sub000/contextcore/sources"
	"github.com/mardukros/mardukros-sub000/embedding"
	"github.com/mardukros/mardukros-sub000/llm"
	"github.com/mardukros/mardukros-sub000/memorycore"
	"github.com/mardukros/mardukros-sub000/persistence"
	"github.com/mardukros/mardukros-sub000/tensor"
	"github.com/mardukros/mardukros-sub000/xerrors"
)

// Query is the inbound request shape of processQuery (spec §4.8):
// a natural-language query plus caller-supplied context lines.
type Query struct {
	Text    string
	Context []string
}

// Result is processQuery's outward-facing result: the LLM response,
// the context actually sent, whether the cache was hit, and the
// confidence heuristic computed from the interaction.
type Result struct {
	Response   llm.Response
	Context    []string
	CacheHit   bool
	Confidence float64
}

// CacheRecord wraps a CacheEntry with its fingerprint key so the
// persisted context-cache file round-trips as an array of pairs,
// matching spec §6's on-disk layout for context-cache.json.
type CacheRecord struct {
	Key   string
	Entry contextcore.CacheEntry
}

// Coordinator wires every Context Orchestrator collaborator behind
// processQuery. All fields are safe for concurrent use; mu serializes
// PersistContext, CreateContextSnapshot and RestoreContextSnapshot
// against each other.
type Coordinator struct {
	mu sync.Mutex

	ai config.AI

	sourceManager *sourcemanager.Manager
	documents     *sources.DocumentSource
	cacheStore    *cache.Cache[string, *contextcore.CacheEntry]
	embedder      embedding.Provider
	client        llm.Client
	tokens        *llm.TokenCounter
	events        memorycore.EventStore
	cachePersist  *persistence.Store[CacheRecord]
}

// Options bundles Coordinator's collaborators, avoiding a long
// positional constructor.
type Options struct {
	AI config.AI

	SourceManager *sourcemanager.Manager
	Documents     *sources.DocumentSource
	Embedder      embedding.Provider
	Client        llm.Client
	Events        memorycore.EventStore
	CachePersist  *persistence.Store[CacheRecord]
}

// New builds a Coordinator over opt. The context cache's capacity comes
// from opt.AI.CacheLimit (spec §6); its TTL and every other cache
// tunable keep the package default.
func New(opt Options) *Coordinator {
	return &Coordinator{
		ai:            opt.AI,
		sourceManager: opt.SourceManager,
		documents:     opt.Documents,
		cacheStore:    cache.NewCache[string, *contextcore.CacheEntry](cache.Options{Capacity: opt.AI.CacheLimit}),
		embedder:      opt.Embedder,
		client:        opt.Client,
		tokens:        llm.NewTokenCounter(),
		events:        opt.Events,
		cachePersist:  opt.CachePersist,
	}
}

// AddDocument forwards content to the internal document source, per
// spec §4.8 "addDocument — forward to document source."
func (c *Coordinator) AddDocument(id, content string) {
	if c.documents != nil {
		c.documents.AddDocument(id, content)
	}
}

// ProcessQuery implements spec §4.8's full algorithm: cache
// fingerprinting and lookup, a source-manager miss path, context
// ranking, the LLM call, and event-memory storage of the interaction.
func (c *Coordinator) ProcessQuery(ctx context.Context, q Query) (Result, error) {
	fp := fingerprint(q.Text)
	terms := queryTerms(q.Text)

	fullContext, cacheHit, err := c.resolveContext(ctx, q, fp, terms)
	if err != nil {
		return Result{}, err
	}

	ranked := c.rankContext(ctx, q.Text, fullContext)
	if len(ranked) > c.contextLimit() {
		ranked = ranked[:c.contextLimit()]
	}

	req := llm.Request{
		Prompt:       q.Text,
		Context:      ranked,
		Temperature:  c.ai.DefaultTemperature,
		MaxTokens:    c.ai.DefaultMaxTokens,
		SystemPrompt: defaultSystemPrompt,
	}
	resp, err := c.callWithRetry(ctx, req)
	if err != nil {
		return Result{}, err
	}

	confidence := c.computeConfidence(req, resp)
	if err := c.recordInteraction(ctx, q.Text, resp, confidence); err != nil {
		return Result{}, xerrors.NewAiError("PROCESS_QUERY_ERROR", err)
	}

	return Result{Response: resp, Context: ranked, CacheHit: cacheHit, Confidence: confidence}, nil
}

// maxLLMAttempts is the total number of LLM calls callWithRetry makes
// for one request: the first call plus up to two retries.
const maxLLMAttempts = 3

// callWithRetry calls the LLM client up to maxLLMAttempts times in
// total, waiting a linear retryDelay·attempt backoff between attempts.
// The final failure is always surfaced as an AiApiError.
func (c *Coordinator) callWithRetry(ctx context.Context, req llm.Request) (llm.Response, error) {
	delay := c.ai.LLMRetryDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxLLMAttempts; attempt++ {
		resp, err := c.client.Call(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == maxLLMAttempts {
			break
		}

		timer := time.NewTimer(delay * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return llm.Response{}, xerrors.NewAiApiError(ctx.Err())
		case <-timer.C:
		}
	}

	var apiErr *xerrors.AiApiError
	if errors.As(lastErr, &apiErr) {
		return llm.Response{}, lastErr
	}
	return llm.Response{}, xerrors.NewAiApiError(lastErr)
}

func (c *Coordinator) contextLimit() int {
	if c.ai.ContextLimit > 0 {
		return c.ai.ContextLimit
	}
	return 10
}

// resolveContext implements steps 2-3 of spec §4.8: a cache hit
// prepends the cached context and merges query terms; a miss runs the
// source manager under a 2s timeout and writes the derived context back
// under fp with a computed relevance score.
func (c *Coordinator) resolveContext(ctx context.Context, q Query, fp string, terms []string) ([]string, bool, error) {
	callerContext := append([]string(nil), q.Context...)

	if entry, ok := c.cacheStore.Get(fp); ok {
		entry.QueryTerms = unionTerms(entry.QueryTerms, terms, 20)
		entry.LastAccessed = time.Now()
		c.cacheStore.Set(fp, entry, entry.Weight)
		return append(append([]string(nil), entry.Context...), callerContext...), true, nil
	}

	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	opt := sources.Options{
		MaxSourcesPerQuery: c.ai.MaxSourcesPerQuery,
		TimeoutMs:          2000,
		Recency:            "recent",
		RecencyWindow:      c.ai.RecencyWindow,
		MaxResults:         c.contextLimit() * 2,
	}
	var items []contextcore.Item
	if c.sourceManager != nil {
		items = c.sourceManager.GetContext(sctx, q.Text, opt)
	}

	derived := make([]string, len(items))
	for i, it := range items {
		derived[i] = it.Content
	}

	relevance := c.computeRelevance(ctx, q.Text, derived)
	now := time.Now()
	c.cacheStore.Set(fp, &contextcore.CacheEntry{
		Context:      derived,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  1,
		Relevance:    relevance,
		QueryTerms:   capTerms(terms, 20),
		Weight:       relevance,
	}, relevance)

	return append(derived, callerContext...), false, nil
}

// computeRelevance scores the query against up to 3 sampled context
// items, weighted 1, 1/2, 1/3 (spec §4.8 step 3).
func (c *Coordinator) computeRelevance(ctx context.Context, query string, samples []string) float64 {
	if len(samples) > 3 {
		samples = samples[:3]
	}
	if len(samples) == 0 {
		return 0
	}
	weights := [3]float64{1, 1.0 / 2, 1.0 / 3}
	scored := embedding.BatchSimilarities(ctx, c.embedder, query, samples)

	var weightedSum, weightTotal float64
	for i, s := range scored {
		w := weights[i]
		weightedSum += w * s.Score
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0
	}
	return tensor.Clamp01(weightedSum / weightTotal)
}

// rankContext implements spec §4.8 step 4: rank the full context by
// vector similarity to the query, falling back to string similarity
// inside BatchSimilarities when the embedding provider errors.
func (c *Coordinator) rankContext(ctx context.Context, query string, items []string) []string {
	if len(items) == 0 {
		return items
	}
	scored := embedding.BatchSimilarities(ctx, c.embedder, query, items)
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Text
	}
	return out
}

// computeConfidence implements spec §4.8 step 5: a heuristic blend of
// completion-to-prompt token ratio and response length, clamped to
// [0,1]. Falls back to TokenCounter when the provider's usage counters
// come back zero (e.g. a client that doesn't report usage).
func (c *Coordinator) computeConfidence(req llm.Request, resp llm.Response) float64 {
	promptTokens := resp.Usage.PromptTokens
	completionTokens := resp.Usage.CompletionTokens
	if promptTokens == 0 {
		promptTokens = c.tokens.Count(resp.Model, req.Prompt)
	}
	if completionTokens == 0 {
		completionTokens = c.tokens.Count(resp.Model, resp.Content)
	}

	var ratio float64
	if promptTokens > 0 {
		ratio = float64(completionTokens) / float64(promptTokens)
	}
	lengthScore := math.Min(1, float64(len(resp.Content))/500.0)
	return tensor.Clamp01(0.5*math.Min(1, ratio) + 0.5*lengthScore)
}

// recordInteraction stores the call as an event-memory item per spec
// §4.8 step 5's { id, type, content, metadata } shape.
func (c *Coordinator) recordInteraction(ctx context.Context, query string, resp llm.Response, confidence float64) error {
	if c.events == nil {
		return nil
	}
	now := time.Now()
	content := memorycore.EventContent{
		Description: fmt.Sprintf("ai interaction: %s -> %s", query, resp.Content),
		Timestamp:   now.Format(time.RFC3339),
		Context:     resp.Model,
	}
	meta := memorycore.Metadata{
		"timestamp":  now,
		"confidence": confidence,
		"source":     "ai-interaction",
		"usage":      resp.Usage,
	}
	item := memorycore.NewItem(fmt.Sprintf("ai-interaction:%d", now.UnixNano()), "ai_interaction", content, meta)
	return c.events.Store(ctx, item)
}

const defaultSystemPrompt = "You are the reasoning core of a long-running coordination agent. Answer using the supplied context when relevant."

// fingerprint implements spec §4.8 step 1: lowercase and trim, split
// on whitespace, keep tokens longer than 3 chars, sort and dedupe, take
// the first 6, join on a space, and prefix "query:". When no token
// survives the length filter, fall back to the first 50 chars of the
// normalized input.
func fingerprint(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	fields := strings.Fields(normalized)

	seen := make(map[string]bool, len(fields))
	var kept []string
	for _, f := range fields {
		if len(f) > 3 && !seen[f] {
			seen[f] = true
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		if len(normalized) > 50 {
			normalized = normalized[:50]
		}
		return "query:" + normalized
	}
	sort.Strings(kept)
	if len(kept) > 6 {
		kept = kept[:6]
	}
	return "query:" + strings.Join(kept, " ")
}

// queryTerms extracts the deduped, order-preserving word list a cache
// entry's queryTerms union draws from.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func capTerms(terms []string, limit int) []string {
	if len(terms) > limit {
		return terms[:limit]
	}
	return terms
}

// unionTerms merges fresh into existing, preserving existing's order
// and deduplicating, capped at limit (spec §4.8 step 2).
func unionTerms(existing, fresh []string, limit int) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(fresh))
	for _, t := range existing {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range fresh {
		if len(out) >= limit {
			break
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

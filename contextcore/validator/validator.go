// Package validator implements the Context Validator of spec §4.7:
// a set of issue detectors plus a fixer, returning result variants
// rather than raising (spec §9 Design Notes: "use result variants...
// only the Coordinator's outward face raises typed errors").
package validator

import (
	"strings"
	"time"
	"unicode"

	"github.com/mardukros/mardukros-sub000/contextcore"
)

// IssueKind is one of the taxonomy kinds of spec §4.7 (not a type name
// in the Go sense — just a label on a detected Issue).
type IssueKind string

const (
	Malformed    IssueKind = "malformed"
	Outdated     IssueKind = "outdated"
	LowQuality   IssueKind = "low_quality"
	Redundant    IssueKind = "redundant"
	Contradictory IssueKind = "contradictory"
)

// Issue names a defect found in one (or a pair of) Context Items.
type Issue struct {
	Kind        IssueKind
	ItemIndex   int
	OtherIndex  int // set for Redundant/Contradictory
	Description string
}

// Options tunes the detector thresholds of spec §4.7.
type Options struct {
	MaxAge              time.Duration
	MinConfidence       float64
	RedundancyThreshold float64
	ContradictionHighSim float64
	ContradictionLowSim  float64
	Strict              bool
}

func (o Options) withDefaults() Options {
	if o.MaxAge == 0 {
		o.MaxAge = 30 * 24 * time.Hour
	}
	if o.MinConfidence == 0 {
		o.MinConfidence = 0.6
	}
	if o.RedundancyThreshold == 0 {
		o.RedundancyThreshold = 0.85
	}
	if o.ContradictionHighSim == 0 {
		o.ContradictionHighSim = 0.5
	}
	if o.ContradictionLowSim == 0 {
		o.ContradictionLowSim = 0.3
	}
	return o
}

// Result is the outcome of Validate: spec §4.7's
// { isValid, issues, totalItemsChecked, processedInMs }.
type Result struct {
	IsValid           bool
	Issues            []Issue
	TotalItemsChecked int
	ProcessedInMs     int64
}

var negationWords = []string{"not", "never", "cannot", "can't", "won't", "isn't", "doesn't", "no"}

var opposingQuantifiers = [][2]string{
	{"all", "none"},
	{"always", "never"},
	{"must", "must not"},
	{"every", "no"},
}

// Validate runs every detector over items and returns a Result. It
// never mutates items or returns an error: malformed content is
// reported as an issue, not rejected.
func Validate(items []contextcore.Item, opt Options) Result {
	opt = opt.withDefaults()
	start := time.Now()

	var issues []Issue
	seen := make([]string, 0, len(items))

	for i, item := range items {
		if kind, desc := detectMalformed(item); kind != "" {
			issues = append(issues, Issue{Kind: kind, ItemIndex: i, Description: desc})
			seen = append(seen, strings.Join(normalizeWords(item.Content), " "))
			continue
		}
		if isOutdated(item, opt.MaxAge) {
			issues = append(issues, Issue{Kind: Outdated, ItemIndex: i, Description: "item older than max age"})
		}
		if isLowQuality(item, opt.MinConfidence) {
			issues = append(issues, Issue{Kind: LowQuality, ItemIndex: i, Description: "confidence below minimum"})
		}

		words := normalizeWords(item.Content)
		for j := 0; j < i; j++ {
			if j >= len(seen) {
				continue
			}
			sim := jaccard(words, wordsOf(seen, j))
			if sim >= opt.RedundancyThreshold {
				issues = append(issues, Issue{Kind: Redundant, ItemIndex: i, OtherIndex: j, Description: "near-duplicate of an earlier item"})
			}
			if contradicts(items[j], item, sim, opt) {
				issues = append(issues, Issue{Kind: Contradictory, ItemIndex: i, OtherIndex: j, Description: "contradicts an earlier item"})
			}
		}
		seen = append(seen, strings.Join(words, " "))
	}

	return Result{
		IsValid:           len(issues) == 0,
		Issues:            issues,
		TotalItemsChecked: len(items),
		ProcessedInMs:     time.Since(start).Milliseconds(),
	}
}

func wordsOf(joined []string, i int) []string {
	return strings.Fields(joined[i])
}

func detectMalformed(item contextcore.Item) (IssueKind, string) {
	if item.Source == "" || item.Type == "" {
		return Malformed, "missing source or type"
	}
	if len(item.Content) == 0 {
		return Malformed, "empty content"
	}
	if len(item.Content) < 10 {
		return LowQuality, "content shorter than 10 characters"
	}
	return "", ""
}

func isOutdated(item contextcore.Item, maxAge time.Duration) bool {
	if item.Metadata.Timestamp == nil {
		return false
	}
	return time.Since(*item.Metadata.Timestamp) > maxAge
}

func isLowQuality(item contextcore.Item, minConfidence float64) bool {
	if item.Metadata.Confidence == nil {
		return false
	}
	return *item.Metadata.Confidence < minConfidence
}

// normalizeWords lowercases and tokenizes s, trimming leading and
// trailing punctuation from each token so "blue" and "blue." collapse
// to the same word for Jaccard comparison.
func normalizeWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[string]bool, len(a))
	for _, w := range a {
		setA[w] = true
	}
	setB := make(map[string]bool, len(b))
	for _, w := range b {
		setB[w] = true
	}
	var intersection, union int
	for w := range setA {
		union++
		if setB[w] {
			intersection++
		}
	}
	for w := range setB {
		if !setA[w] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func hasNegation(words []string) bool {
	for _, w := range words {
		for _, neg := range negationWords {
			if w == neg {
				return true
			}
		}
	}
	return false
}

func hasOpposingQuantifiers(a, b []string) bool {
	setA := make(map[string]bool, len(a))
	for _, w := range a {
		setA[w] = true
	}
	setB := make(map[string]bool, len(b))
	for _, w := range b {
		setB[w] = true
	}
	for _, pair := range opposingQuantifiers {
		if (setA[pair[0]] && setB[pair[1]]) || (setA[pair[1]] && setB[pair[0]]) {
			return true
		}
	}
	return false
}

func contradicts(a, b contextcore.Item, sim float64, opt Options) bool {
	if a.Type != b.Type {
		return false
	}
	wordsA := normalizeWords(a.Content)
	wordsB := normalizeWords(b.Content)

	if hasNegation(wordsA) != hasNegation(wordsB) && sim >= opt.ContradictionHighSim {
		return true
	}
	if hasOpposingQuantifiers(wordsA, wordsB) && sim >= opt.ContradictionLowSim {
		return true
	}
	return false
}

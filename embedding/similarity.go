package embedding

import (
	"context"
	"strings"

	"github.com/mardukros/mardukros-sub000/tensor"
)

// Cosine computes dot(a,b) / (‖a‖·‖b‖), clamped to [0,1] — a negative
// dot product is treated as 0 for the ranker, per spec §4.4.
func Cosine(a, b []float64) float64 {
	na, nb := tensor.Norm(a), tensor.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return tensor.Clamp01(tensor.Dot(a, b) / (na * nb))
}

// Scored pairs a candidate text with its similarity score to a query,
// preserving input order (spec §4.4 batchSimilarities contract).
type Scored struct {
	Text  string
	Score float64
}

// BatchSimilarities scores every text in texts against query, in
// order. When the embedding provider fails for the query or any
// candidate, it falls back to DiceCoefficient string similarity for
// that pair rather than failing the whole batch (spec §4.4: "failure
// falls back to string-based Dice/Sørensen bigram similarity").
func BatchSimilarities(ctx context.Context, provider Provider, query string, texts []string) []Scored {
	out := make([]Scored, len(texts))
	queryVec, queryErr := provider.Embed(ctx, query)

	for i, text := range texts {
		if queryErr == nil {
			if vec, err := provider.Embed(ctx, text); err == nil {
				out[i] = Scored{Text: text, Score: Cosine(queryVec, vec)}
				continue
			}
		}
		out[i] = Scored{Text: text, Score: DiceCoefficient(query, text)}
	}
	return out
}

// DiceCoefficient computes the Sørensen-Dice coefficient over
// character bigrams: 2*|intersection| / (|bigrams(a)| + |bigrams(b)|).
// This is the string-similarity fallback of spec §4.4.
func DiceCoefficient(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == b {
		return 1
	}
	bigramsA := bigramCounts(a)
	bigramsB := bigramCounts(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}

	var intersection int
	for gram, countA := range bigramsA {
		countB := bigramsB[gram]
		if countB < countA {
			intersection += countB
		} else {
			intersection += countA
		}
	}

	totalA, totalB := 0, 0
	for _, c := range bigramsA {
		totalA += c
	}
	for _, c := range bigramsB {
		totalB += c
	}
	if totalA+totalB == 0 {
		return 0
	}
	return tensor.Clamp01(2 * float64(intersection) / float64(totalA+totalB))
}

func bigramCounts(s string) map[string]int {
	runes := []rune(strings.ReplaceAll(s, " ", ""))
	counts := make(map[string]int)
	if len(runes) < 2 {
		if len(runes) == 1 {
			counts[string(runes)]++
		}
		return counts
	}
	for i := 0; i < len(runes)-1; i++ {
		counts[string(runes[i:i+2])]++
	}
	return counts
}

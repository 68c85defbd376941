package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	vectors map[string][]float64
	err     error
}

func (p *stubProvider) Embed(_ context.Context, text string) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	if v, ok := p.vectors[text]; ok {
		return v, nil
	}
	return nil, errors.New("no vector for text")
}

func TestCosineClampsNegativeToZero(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{-1, 0}
	assert.Equal(t, 0.0, Cosine(a, b))
}

func TestCosineIdenticalVectorsIsOne(t *testing.T) {
	a := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
}

func TestBatchSimilaritiesPreservesOrder(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float64{
		"query": {1, 0},
		"a":     {1, 0},
		"b":     {0, 1},
	}}
	scores := BatchSimilarities(context.Background(), provider, "query", []string{"b", "a"})
	assert.Equal(t, "b", scores[0].Text)
	assert.Equal(t, "a", scores[1].Text)
	assert.InDelta(t, 0.0, scores[0].Score, 1e-9)
	assert.InDelta(t, 1.0, scores[1].Score, 1e-9)
}

func TestBatchSimilaritiesFallsBackToDiceOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("embedding outage")}
	scores := BatchSimilarities(context.Background(), provider, "hello world", []string{"hello world"})
	assert.InDelta(t, 1.0, scores[0].Score, 1e-9)
}

func TestDiceCoefficientIdenticalStringsIsOne(t *testing.T) {
	assert.Equal(t, 1.0, DiceCoefficient("chaos theory", "chaos theory"))
}

func TestDiceCoefficientDisjointStringsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, DiceCoefficient("aaaa", "zzzz"))
}

func TestNormalizeCollapsesWhitespaceAndLowercases(t *testing.T) {
	assert.Equal(t, "hello world", normalize("  Hello   World  "))
}

package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider is the concrete Provider backing the "embedding
// function" spec §1 names as a named external dependency, grounded on
// ai/providers/openai/embedding's request/response shape and adapted
// to this repo's openai-go/v3 client (the same client llm.OpenAIClient
// uses, rather than the teacher's sashabaranov/go-openai) so the
// module carries one OpenAI SDK, not two.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIProvider builds an OpenAIProvider for model (empty defaults
// to text-embedding-3-small, the teacher's SmallEmbedding3 default).
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client, model: openai.EmbeddingModel(model)}
}

// Embed satisfies Provider by requesting a single embedding vector.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: no data returned")
	}
	vec := make([]float64, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)
	return vec, nil
}

package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mardukros/mardukros-sub000/xerrors"
)

// OpenAIClient is the openai-go-backed Client, grounded on the
// teacher's providers/openaiv2.Api wrapper (a single *openai.Client
// plus one method per call shape).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds an OpenAIClient for model, authenticated with
// apiKey (spec §6 "Required env: OPENAI_API_KEY").
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &client, model: model}
}

// Call sends req as a single-turn chat completion, with req.Context
// items prepended as prior user turns so the ranked context the
// Coordinator assembled is visible to the model (spec §4.8 step 4).
func (c *OpenAIClient) Call(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Context)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, ctxLine := range req.Context {
		messages = append(messages, openai.UserMessage(ctxLine))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, xerrors.NewAiApiError(fmt.Errorf("openai chat completion: %w", err))
	}
	if len(completion.Choices) == 0 {
		return Response{}, xerrors.NewAiApiError(fmt.Errorf("openai chat completion: no choices returned"))
	}

	return Response{
		Content: completion.Choices[0].Message.Content,
		Model:   completion.Model,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

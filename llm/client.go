// Package llm implements the LLM API client external collaborator
// (spec §1 Non-goals: "the underlying LLM API client" is out of scope
// as an implementation, but the Coordinator needs an interface to call
// through and a concrete openai-go-backed implementation to wire it
// to). Grounded on the teacher's model.ChatModel shape: a single
// synchronous Call entry point over a typed request/response pair.
package llm

import "context"

// Request is the Coordinator's call shape for processQuery (spec
// §4.8): { prompt, context, temperature, maxTokens, systemPrompt }.
type Request struct {
	Prompt       string
	Context      []string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Usage mirrors the teacher's response.Usage shape: prompt/completion
// token counts plus their sum.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns PromptTokens + CompletionTokens.
func (u Usage) TotalTokens() int { return u.PromptTokens + u.CompletionTokens }

// Response carries processQuery's content, token usage and model name.
// It has no timestamp field.
type Response struct {
	Content string
	Usage   Usage
	Model   string
}

// Client is the LLM provider contract the Coordinator calls through.
type Client interface {
	Call(ctx context.Context, req Request) (Response, error)
}

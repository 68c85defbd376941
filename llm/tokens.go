package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens the way the target model actually does,
// replacing a hand-rolled word-count estimate for the confidence
// heuristic in processQuery step 5 (spec §4.8).
type TokenCounter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// NewTokenCounter builds an empty TokenCounter; encodings are resolved
// and cached lazily per model on first use.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{encoders: make(map[string]*tiktoken.Tiktoken)}
}

// Count returns the number of tokens text encodes to under model's
// tokenizer, falling back to cl100k_base (the family every current
// OpenAI chat model uses) when the model name isn't recognized.
func (c *TokenCounter) Count(model, text string) int {
	enc := c.encoderFor(model)
	if enc == nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *TokenCounter) encoderFor(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encoders[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil
		}
	}
	c.encoders[model] = enc
	return enc
}

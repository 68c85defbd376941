package sources

import (
	"context"
	"strings"
	"sync"

	"github.com/mardukros/mardukros-sub000/contextcore"
)

// DocumentSource is an in-process id->content mapping, matching a
// query if any whitespace-split token appears in the lowered content
// (spec §4.6).
type DocumentSource struct {
	mu        sync.RWMutex
	docs      map[string]string
	priority  int
}

// NewDocumentSource creates an empty DocumentSource at the given
// fan-out priority.
func NewDocumentSource(priority int) *DocumentSource {
	return &DocumentSource{docs: make(map[string]string), priority: priority}
}

// AddDocument stores content under id, overwriting any prior value
// (spec §4.8 "addDocument — forward to document source").
func (d *DocumentSource) AddDocument(id, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[id] = content
}

func (d *DocumentSource) SourceType() string { return "internal:documents" }
func (d *DocumentSource) Priority() int      { return d.priority }

func (d *DocumentSource) GetContext(_ context.Context, query string, _ Options) ([]contextcore.Item, error) {
	tokens := tokenize(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []contextcore.Item
	for id, content := range d.docs {
		lowered := strings.ToLower(content)
		for _, tok := range tokens {
			if strings.Contains(lowered, tok) {
				out = append(out, contextcore.Item{
					Content: content,
					Source:  d.SourceType(),
					Type:    "document",
					Metadata: contextcore.ItemMetadata{
						Extra: map[string]any{"id": id},
					},
				})
				break
			}
		}
	}
	return out, nil
}

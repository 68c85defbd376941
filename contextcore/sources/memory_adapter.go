package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/mardukros/mardukros-sub000/contextcore"
	"github.com/mardukros/mardukros-sub000/memorycore"
)

// FormatFunc renders a subsystem item's content as the text an LLM
// prompt will see (spec §4.6: "Concept adapter synthesizes 'Name:
// Description\nRelated concepts:...'").
type FormatFunc[C any] func(item *memorycore.Item[C]) string

// memoryAdapter is a thin wrapper over a memory subsystem's query,
// generic over the subsystem's content type but exposed only through
// the non-generic Source interface (spec §4.6 "Memory adapters: thin
// wrappers over a memory subsystem's query").
type memoryAdapter[C any] struct {
	store      memorycore.Store[C]
	queryType  string
	sourceType string
	priority   int
	format     FormatFunc[C]
}

// NewMemoryAdapter builds a Source delegating to store, tagging every
// produced Item with sourceType (e.g. "memory:concept").
func NewMemoryAdapter[C any](store memorycore.Store[C], queryType, sourceType string, priority int, format FormatFunc[C]) Source {
	return &memoryAdapter[C]{store: store, queryType: queryType, sourceType: sourceType, priority: priority, format: format}
}

func (a *memoryAdapter[C]) SourceType() string { return a.sourceType }
func (a *memoryAdapter[C]) Priority() int      { return a.priority }

func (a *memoryAdapter[C]) GetContext(ctx context.Context, query string, opt Options) ([]contextcore.Item, error) {
	resp, err := a.store.Query(ctx, &memorycore.Query{Type: a.queryType, Term: query})
	if err != nil {
		return nil, err
	}
	items := make([]contextcore.Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		conf := it.Metadata.Float64("confidence", 0)
		items = append(items, contextcore.Item{
			Content: a.format(it),
			Source:  a.sourceType,
			Type:    it.Type,
			Metadata: contextcore.ItemMetadata{
				Confidence: &conf,
				Tags:       it.Metadata.StringSlice("tags"),
			},
		})
	}
	return items, nil
}

// FormatFactual renders a factual item as its raw content string.
func FormatFactual(item *memorycore.Item[string]) string { return item.Content }

// FormatEvent renders an event item's description plus context.
func FormatEvent(item *memorycore.Item[memorycore.EventContent]) string {
	c := item.Content
	if c.Context == "" {
		return c.Description
	}
	return fmt.Sprintf("%s (%s)", c.Description, c.Context)
}

// FormatConcept synthesizes "Name: Description\nRelated concepts:..."
// per spec §4.6's example.
func FormatConcept(item *memorycore.Item[memorycore.ConceptContent]) string {
	c := item.Content
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", c.Name, c.Description)
	if len(c.Relationships) > 0 {
		b.WriteString("\nRelated concepts:")
		for _, rel := range c.Relationships {
			fmt.Fprintf(&b, " %s(%s)", rel.Target, rel.Type)
		}
	}
	return b.String()
}

// FormatWorkflow renders a workflow item's title plus its step count.
func FormatWorkflow(item *memorycore.Item[memorycore.WorkflowContent]) string {
	c := item.Content
	return fmt.Sprintf("%s (%d steps)", c.Title, len(c.Steps))
}

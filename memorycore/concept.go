package memorycore

import "strings"

// Relationship is one edge in a Concept's relationship sequence (spec
// §3): a typed, optionally-bidirectional link of strength [0,1] to
// another concept.
type Relationship struct {
	Type          string
	Target        string
	Strength      float64
	Bidirectional bool
}

// ConceptContent is the structured content of a concept memory item
// (spec §3): a name, optional description, an ordered relationship
// sequence, and optional free-form properties.
type ConceptContent struct {
	Name          string
	Description   string
	Relationships []Relationship
	Properties    map[string]any
}

// ConceptStore holds concepts and the relationship graph between them.
type ConceptStore = Store[ConceptContent]

// NewConceptStore wires a base store with the concept matchesQuery
// rule: match on name, description, any relationship type or target,
// or any category (spec §4.1).
func NewConceptStore(opt Options[ConceptContent]) ConceptStore {
	opt.MatchFn = conceptMatch
	opt.IndexFields = conceptIndexFields
	if len(opt.AllowedTypes) == 0 {
		opt.AllowedTypes = []string{"concept"}
	}
	return newBase(opt)
}

func conceptMatch(item *Item[ConceptContent], term string) bool {
	c := item.Content
	if strings.Contains(strings.ToLower(c.Name), term) {
		return true
	}
	if strings.Contains(strings.ToLower(c.Description), term) {
		return true
	}
	for _, rel := range c.Relationships {
		if strings.Contains(strings.ToLower(rel.Type), term) || strings.Contains(strings.ToLower(rel.Target), term) {
			return true
		}
	}
	for _, cat := range item.Metadata.StringSlice("category") {
		if strings.Contains(strings.ToLower(cat), term) {
			return true
		}
	}
	return false
}

func conceptIndexFields(item *Item[ConceptContent]) map[string][]string {
	targets := make([]string, 0, len(item.Content.Relationships))
	for _, rel := range item.Content.Relationships {
		targets = append(targets, rel.Target)
	}
	return map[string][]string{
		"category":          item.Metadata.StringSlice("category"),
		"relationshipTarget": targets,
	}
}

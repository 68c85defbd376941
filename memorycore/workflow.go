package memorycore

import "strings"

// WorkflowContent is the structured content of a workflow memory item
// (spec §3): a title, an ordered step sequence, and optional tags,
// prerequisites, and an estimated duration.
type WorkflowContent struct {
	Title             string
	Steps             []string
	Tags              []string
	Prerequisites     []string
	EstimatedDuration string
}

// WorkflowStore holds reusable procedures keyed by title and step
// sequence, scored by successRate and complexity (spec §3).
type WorkflowStore = Store[WorkflowContent]

// NewWorkflowStore wires a base store with the workflow matchesQuery
// rule: match on title, any step, any tag, or any category; numeric
// filters (e.g. complexity.max) are applied at the filter stage, before
// matchesQuery runs (spec §4.1).
func NewWorkflowStore(opt Options[WorkflowContent]) WorkflowStore {
	opt.MatchFn = workflowMatch
	opt.IndexFields = workflowIndexFields
	if len(opt.AllowedTypes) == 0 {
		opt.AllowedTypes = []string{"workflow"}
	}
	return newBase(opt)
}

func workflowMatch(item *Item[WorkflowContent], term string) bool {
	c := item.Content
	if strings.Contains(strings.ToLower(c.Title), term) {
		return true
	}
	for _, step := range c.Steps {
		if strings.Contains(strings.ToLower(step), term) {
			return true
		}
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
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

func workflowIndexFields(item *Item[WorkflowContent]) map[string][]string {
	return map[string][]string{
		"tags":     item.Content.Tags,
		"category": item.Metadata.StringSlice("category"),
	}
}

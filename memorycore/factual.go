package memorycore

import "strings"

// FactualStore holds plain-string facts tagged and scored by confidence
// (spec §3 "Factual: content is a string").
type FactualStore = Store[string]

// NewFactualStore wires a base store with the factual matchesQuery rule:
// match on content or on any tag (spec §4.1).
func NewFactualStore(opt Options[string]) FactualStore {
	opt.MatchFn = factualMatch
	opt.IndexFields = factualIndexFields
	if len(opt.AllowedTypes) == 0 {
		opt.AllowedTypes = []string{"factual"}
	}
	return newBase(opt)
}

func factualMatch(item *Item[string], term string) bool {
	if strings.Contains(strings.ToLower(item.Content), term) {
		return true
	}
	for _, tag := range item.Metadata.StringSlice("tags") {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func factualIndexFields(item *Item[string]) map[string][]string {
	return map[string][]string{
		"tags": item.Metadata.StringSlice("tags"),
	}
}

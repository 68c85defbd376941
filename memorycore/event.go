package memorycore

import "strings"

// EventContent is the structured content of an event memory item (spec
// §3): a description, an ISO-8601 timestamp, and optional context,
// actors, and location.
type EventContent struct {
	Description string
	Timestamp   string
	Context     string
	Actors      []string
	Location    string
}

// EventStore holds event-memory items: interactions, observations, and
// stored AI interactions (spec §4.8 "store the interaction in the event
// memory").
type EventStore = Store[EventContent]

// NewEventStore wires a base store with the event matchesQuery rule:
// match on description, context, any actor, or any tag (spec §4.1).
func NewEventStore(opt Options[EventContent]) EventStore {
	opt.MatchFn = eventMatch
	opt.IndexFields = eventIndexFields
	if len(opt.AllowedTypes) == 0 {
		opt.AllowedTypes = []string{"event", "ai_interaction"}
	}
	return newBase(opt)
}

func eventMatch(item *Item[EventContent], term string) bool {
	c := item.Content
	if strings.Contains(strings.ToLower(c.Description), term) {
		return true
	}
	if strings.Contains(strings.ToLower(c.Context), term) {
		return true
	}
	for _, actor := range c.Actors {
		if strings.Contains(strings.ToLower(actor), term) {
			return true
		}
	}
	for _, tag := range item.Metadata.StringSlice("tags") {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func eventIndexFields(item *Item[EventContent]) map[string][]string {
	return map[string][]string{
		"tags":   item.Metadata.StringSlice("tags"),
		"actors": item.Content.Actors,
	}
}

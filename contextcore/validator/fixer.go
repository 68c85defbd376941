package validator

import (
	"github.com/mardukros/mardukros-sub000/contextcore"
)

// Fix applies the fixer rules of spec §4.7 to items given result:
// malformed items get an empty source/type defaulted to "unknown"
// (their content is left as is),
// outdated items are annotated, redundant items are dropped. In
// strict mode (opt.Strict), malformed/outdated entries are removed
// instead of annotated.
func Fix(items []contextcore.Item, result Result, opt Options) []contextcore.Item {
	drop := make(map[int]bool)
	patched := make([]contextcore.Item, len(items))
	copy(patched, items)

	for _, issue := range result.Issues {
		switch issue.Kind {
		case Malformed:
			if opt.Strict {
				drop[issue.ItemIndex] = true
				continue
			}
			fixMalformed(&patched[issue.ItemIndex])
		case Outdated:
			if opt.Strict {
				drop[issue.ItemIndex] = true
				continue
			}
			fixOutdated(&patched[issue.ItemIndex])
		case Redundant:
			drop[issue.ItemIndex] = true
		}
	}

	out := make([]contextcore.Item, 0, len(patched))
	for i, item := range patched {
		if drop[i] {
			continue
		}
		out = append(out, item)
	}
	return out
}

func fixMalformed(item *contextcore.Item) {
	if item.Source == "" {
		item.Source = "unknown"
	}
	if item.Type == "" {
		item.Type = "unknown"
	}
}

func fixOutdated(item *contextcore.Item) {
	const prefix = "[OUTDATED] "
	if len(item.Content) < len(prefix) || item.Content[:len(prefix)] != prefix {
		item.Content = prefix + item.Content
	}
	if item.Metadata.Extra == nil {
		item.Metadata.Extra = make(map[string]any)
	}
	item.Metadata.Extra["outdated"] = true
}

package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mardukros/mardukros-sub000/contextcore"
)

func TestValidateFlagsMalformedItem(t *testing.T) {
	items := []contextcore.Item{{Content: "hello", Source: "", Type: ""}}
	result := Validate(items, Options{})
	assert.False(t, result.IsValid)
	assert.Equal(t, Malformed, result.Issues[0].Kind)
}

func TestValidateFlagsLowQualityShortContent(t *testing.T) {
	items := []contextcore.Item{{Content: "short", Source: "s", Type: "t"}}
	result := Validate(items, Options{})
	assert.Equal(t, LowQuality, result.Issues[0].Kind)
}

func TestValidateFlagsOutdatedItem(t *testing.T) {
	old := time.Now().Add(-60 * 24 * time.Hour)
	items := []contextcore.Item{{
		Content: "this content is definitely long enough",
		Source:  "s", Type: "t",
		Metadata: contextcore.ItemMetadata{Timestamp: &old},
	}}
	result := Validate(items, Options{})
	found := false
	for _, issue := range result.Issues {
		if issue.Kind == Outdated {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateFlagsRedundantItem(t *testing.T) {
	items := []contextcore.Item{
		{Content: "the quick brown fox jumps over the lazy dog", Source: "s", Type: "t"},
		{Content: "the quick brown fox jumps over the lazy dog", Source: "s", Type: "t"},
	}
	result := Validate(items, Options{})
	found := false
	for _, issue := range result.Issues {
		if issue.Kind == Redundant {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFixCoercesMissingSourceAndType(t *testing.T) {
	items := []contextcore.Item{{Content: "hello world, this is long", Source: "", Type: ""}}
	result := Validate(items, Options{})
	fixed := Fix(items, result, Options{})
	assert.Equal(t, "unknown", fixed[0].Source)
	assert.Equal(t, "unknown", fixed[0].Type)
}

func TestFixStrictModeRemovesMalformed(t *testing.T) {
	items := []contextcore.Item{{Content: "hello world, this is long", Source: "", Type: ""}}
	result := Validate(items, Options{})
	fixed := Fix(items, result, Options{Strict: true})
	assert.Empty(t, fixed)
}

func TestValidateFlagsRedundantItemDespiteTrailingPunctuation(t *testing.T) {
	items := []contextcore.Item{
		{Content: "The sky is blue", Source: "s", Type: "t"},
		{Content: "The sky is blue.", Source: "s", Type: "t"},
		{Content: "Water boils at one hundred degrees", Source: "s", Type: "t"},
	}
	result := Validate(items, Options{})

	var redundant *Issue
	for i := range result.Issues {
		if result.Issues[i].Kind == Redundant {
			redundant = &result.Issues[i]
		}
	}
	if assert.NotNil(t, redundant) {
		assert.Equal(t, 1, redundant.ItemIndex)
		assert.Equal(t, 0, redundant.OtherIndex)
	}

	fixed := Fix(items, result, Options{})
	assert.Len(t, fixed, 2)
	assert.Equal(t, "The sky is blue", fixed[0].Content)
	assert.Equal(t, "Water boils at one hundred degrees", fixed[1].Content)
}

func TestFixRemovesRedundantItems(t *testing.T) {
	items := []contextcore.Item{
		{Content: "the quick brown fox jumps over the lazy dog", Source: "s", Type: "t"},
		{Content: "the quick brown fox jumps over the lazy dog", Source: "s", Type: "t"},
	}
	result := Validate(items, Options{})
	fixed := Fix(items, result, Options{})
	assert.Len(t, fixed, 1)
}

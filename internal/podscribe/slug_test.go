package podscribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Technology", expected: "technology"},
		{input: "True Crime", expected: "true-crime"},
		{input: "  Science & Nature  ", expected: "science-nature"},
		{input: "Café Culture", expected: "cafe-culture"},
		{input: "AI -- Machine Learning", expected: "ai-machine-learning"},
		{input: "snake_case stays", expected: "snake_case-stays"},
		{input: "???", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestFeed_HasPlaceholderName(t *testing.T) {
	f := Feed{URL: "https://example.com/rss", Name: PlaceholderFeedName("https://example.com/rss")}
	assert.True(t, f.HasPlaceholderName())

	f.Name = "The Real Show"
	assert.False(t, f.HasPlaceholderName())
}

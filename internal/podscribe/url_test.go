package podscribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips query",
			input:    "https://cdn.example.com/ep/1.mp3?utm_source=rss&x=1",
			expected: "https://cdn.example.com/ep/1.mp3",
		},
		{
			name:     "strips fragment",
			input:    "https://cdn.example.com/ep/1.mp3#t=30",
			expected: "https://cdn.example.com/ep/1.mp3",
		},
		{
			name:     "strips both",
			input:    "https://cdn.example.com/ep/1.mp3?a=b#frag",
			expected: "https://cdn.example.com/ep/1.mp3",
		},
		{
			name:     "keeps path params",
			input:    "http://example.com/audio;type=mp3?x=1",
			expected: "http://example.com/audio;type=mp3",
		},
		{
			name:     "already clean",
			input:    "https://example.com/a/b.m4a",
			expected: "https://example.com/a/b.m4a",
		},
		{
			name:     "trailing question mark",
			input:    "https://example.com/a.mp3?",
			expected: "https://example.com/a.mp3",
		},
		{
			name:     "unparseable is returned as is",
			input:    "http://[::1%zz/a.mp3?x=1",
			expected: "http://[::1%zz/a.mp3?x=1",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanURL(tt.input))
		})
	}
}

func TestCleanURL_Idempotent(t *testing.T) {
	inputs := []string{
		"https://cdn.example.com/ep/1.mp3?utm_source=rss#frag",
		"http://example.com/audio;type=mp3?x=1",
		"https://example.com/with space/a.mp3?q",
		"not a url at all",
		"http://[::1%zz/a.mp3?x=1",
		"//example.com/relative.mp3?x=1",
		"",
	}

	for _, in := range inputs {
		once := CleanURL(in)
		assert.Equal(t, once, CleanURL(once), "input %q", in)
	}
}

package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPodcastFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>The <b>Test</b> Show</title>
    <description>A show about tests</description>
    <link>https://example.com</link>
    <item>
      <title>Episode One</title>
      <guid>ep-1</guid>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/ep1.mp3?src=rss" length="1234" type="audio/mpeg"/>
    </item>
    <item>
      <title>Episode Two</title>
      <guid>ep-2</guid>
      <pubDate>Tue, 02 Jan 2024 12:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/ep2.mp3" length="1234" type="audio/mpeg"/>
    </item>
    <item>
      <title>Show notes only</title>
      <guid>post-3</guid>
      <link>https://example.com/post-3</link>
    </item>
  </channel>
</rss>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testPodcastFeed))
	}))
	defer srv.Close()

	parsed, err := NewFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "The Test Show", parsed.Title)
	assert.Equal(t, "A show about tests", parsed.Description)
	assert.Empty(t, parsed.Warnings)
	require.Len(t, parsed.Items, 3)
	assert.Equal(t, "Episode One", parsed.Items[0].Title)
}

func TestFetch_Warnings(t *testing.T) {
	const untitled = `<?xml version="1.0"?><rss version="2.0"><channel>
	<item><title>x</title><enclosure url="https://cdn.example.com/x.mp3" type="audio/mpeg"/></item>
	</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(untitled))
	}))
	defer srv.Close()

	parsed, err := NewFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, parsed.Warnings, 2)
	assert.Len(t, parsed.Items, 1)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "not a feed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("this is definitely not xml"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}

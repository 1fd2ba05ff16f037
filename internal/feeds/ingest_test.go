package feeds

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/podscribe/internal/migrations"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/sqlite"
)

type fakeSource struct {
	feed  ParsedFeed
	err   error
	calls int
}

func (f *fakeSource) Fetch(context.Context, string) (ParsedFeed, error) {
	f.calls++
	return f.feed, f.err
}

func newTestStore(t *testing.T) sqlite.Repo {
	t.Helper()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "feeds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	return sqlite.New(dbx)
}

func audioItem(title, url string) *gofeed.Item {
	published := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &gofeed.Item{
		Title:           title,
		PublishedParsed: &published,
		Enclosures:      []*gofeed.Enclosure{{URL: url, Type: "audio/mpeg"}},
	}
}

func TestProcessFeed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	src := &fakeSource{feed: ParsedFeed{
		Title: "The Test Show",
		Items: []*gofeed.Item{
			audioItem("One", "https://cdn.example.com/1.mp3?utm=rss"),
			audioItem("Two", "https://cdn.example.com/2.mp3"),
			{Title: "No audio", Link: "https://example.com/post"},
		},
	}}
	in := NewIngestor(store, src)
	fixed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	in.now = func() time.Time { return fixed }

	feed, created, err := in.EnsureFeed(ctx, "https://example.com/rss")
	require.NoError(t, err)
	require.True(t, created)

	report, err := in.ProcessFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Error)
	assert.Equal(t, 3, report.TotalEntries)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Existing)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.CreatedEpisodeIDs, 2)
	assert.Equal(t, "The Test Show", report.FeedName)

	got, err := store.Feed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Test Show", got.Name)
	require.NotNil(t, got.LastProcessedAt)
	assert.True(t, fixed.Equal(*got.LastProcessedAt))

	ep, err := store.EpisodeByURL(ctx, "https://cdn.example.com/1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/1.mp3", ep.URL)
	assert.Equal(t, "One", *ep.Title)
	assert.Equal(t, feed.ID, *ep.FeedID)

	// Second pass finds the same episodes
	report, err = in.ProcessFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Existing)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, report.CreatedEpisodeIDs)

	eps, err := store.FeedEpisodes(ctx, feed.ID)
	require.NoError(t, err)
	assert.Len(t, eps, 2)
}

func TestProcessFeed_KeepsRealName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	src := &fakeSource{feed: ParsedFeed{
		Title: "Source Title",
		Items: []*gofeed.Item{audioItem("One", "https://cdn.example.com/1.mp3")},
	}}
	in := NewIngestor(store, src)

	feed, err := store.InsertFeed(ctx, podscribe.Feed{URL: "https://example.com/rss", Name: "My Name", IsActive: true})
	require.NoError(t, err)

	report, err := in.ProcessFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Name", report.FeedName)

	got, err := store.Feed(ctx, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Name", got.Name)
}

func TestProcessFeed_ErrorReports(t *testing.T) {
	tests := []struct {
		name      string
		active    bool
		source    *fakeSource
		wantError string
		wantFetch bool
	}{
		{
			name:      "inactive feed",
			active:    false,
			source:    &fakeSource{feed: ParsedFeed{Items: []*gofeed.Item{audioItem("x", "https://cdn.example.com/x.mp3")}}},
			wantError: "feed is marked as inactive",
		},
		{
			name:      "fetch failure",
			active:    true,
			source:    &fakeSource{err: errors.Join(ErrFetch, errors.New("boom"))},
			wantError: "failed to fetch feed",
			wantFetch: true,
		},
		{
			name:      "empty feed",
			active:    true,
			source:    &fakeSource{feed: ParsedFeed{Title: "Empty"}},
			wantError: "no entries found in feed",
			wantFetch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			in := NewIngestor(store, tt.source)

			feed, err := store.InsertFeed(ctx, podscribe.Feed{URL: "https://example.com/rss", IsActive: tt.active})
			require.NoError(t, err)

			report, err := in.ProcessFeed(ctx, feed.ID)
			require.NoError(t, err)
			assert.Contains(t, report.Error, tt.wantError)
			assert.Zero(t, report.Created)
			assert.Equal(t, tt.wantFetch, tt.source.calls > 0)

			got, err := store.Feed(ctx, feed.ID)
			require.NoError(t, err)
			assert.Nil(t, got.LastProcessedAt)
		})
	}
}

func TestProcessFeed_NotFound(t *testing.T) {
	in := NewIngestor(newTestStore(t), &fakeSource{})

	report, err := in.ProcessFeed(context.Background(), "missing-fd")
	require.NoError(t, err)
	assert.Equal(t, "feed not found", report.Error)
}

func TestProcessAllActiveFeeds(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	src := &fakeSource{feed: ParsedFeed{
		Title: "Show",
		Items: []*gofeed.Item{audioItem("One", "https://cdn.example.com/1.mp3")},
	}}
	in := NewIngestor(store, src)

	_, err := store.InsertFeed(ctx, podscribe.Feed{URL: "https://a.example.com/rss", IsActive: true})
	require.NoError(t, err)
	_, err = store.InsertFeed(ctx, podscribe.Feed{URL: "https://b.example.com/rss", IsActive: false})
	require.NoError(t, err)

	reports, err := in.ProcessAllActiveFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Created)
	assert.Equal(t, 1, src.calls)
}

func TestEnsureFeed_Existing(t *testing.T) {
	ctx := context.Background()
	in := NewIngestor(newTestStore(t), &fakeSource{})

	first, created, err := in.EnsureFeed(ctx, "https://example.com/rss")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.HasPlaceholderName())

	second, created, err := in.EnsureFeed(ctx, " https://example.com/rss ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

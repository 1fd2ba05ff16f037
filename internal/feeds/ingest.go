package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jdholdren/podscribe/internal/logger"
	"github.com/jdholdren/podscribe/internal/podscribe"
)

// ErrNoAudio means a feed item had nothing to transcribe. It's a routine skip.
var ErrNoAudio = errors.New("no audio url in entry")

type (
	// Source fetches feeds. [Fetcher] is the real one.
	Source interface {
		Fetch(ctx context.Context, feedURL string) (ParsedFeed, error)
	}

	Store interface {
		podscribe.FeedRepo
		podscribe.EpisodeRepo
	}

	Ingestor struct {
		store  Store
		source Source
		now    func() time.Time
	}

	// Report is the outcome of one processing pass over a feed.
	//
	// When Error is set nothing was ingested and the feed was left untouched.
	Report struct {
		FeedID            string   `json:"feed_id"`
		FeedName          string   `json:"feed_name"`
		TotalEntries      int      `json:"total_entries"`
		Created           int      `json:"created"`
		Existing          int      `json:"existing"`
		Failed            int      `json:"failed"`
		CreatedEpisodeIDs []string `json:"created_episode_ids,omitempty"`
		Error             string   `json:"error,omitempty"`
	}
)

func NewIngestor(store Store, source Source) *Ingestor {
	return &Ingestor{
		store:  store,
		source: source,
		now:    time.Now,
	}
}

// EnsureFeed returns the feed for url, creating it with a placeholder name if
// it doesn't exist yet. The bool reports whether it was created.
func (in *Ingestor) EnsureFeed(ctx context.Context, url string) (podscribe.Feed, bool, error) {
	url = strings.TrimSpace(url)

	feed, err := in.store.FeedByURL(ctx, url)
	if err == nil {
		return feed, false, nil
	}
	if !errors.Is(err, podscribe.ErrNotFound) {
		return podscribe.Feed{}, false, err
	}

	feed, err = in.store.InsertFeed(ctx, podscribe.Feed{URL: url, IsActive: true})
	if errors.Is(err, podscribe.ErrConflict) {
		// Lost a race with another insert
		feed, err = in.store.FeedByURL(ctx, url)
		if err != nil {
			return podscribe.Feed{}, false, fmt.Errorf("error fetching conflicting feed: %w", err)
		}
		return feed, false, nil
	}
	if err != nil {
		return podscribe.Feed{}, false, err
	}

	return feed, true, nil
}

// IngestEntry makes sure the item's audio has an episode.
//
// Returns [ErrNoAudio] when the item has no audio. The bool is true only when
// a new episode was created.
func (in *Ingestor) IngestEntry(ctx context.Context, feed podscribe.Feed, item *gofeed.Item) (podscribe.Episode, bool, error) {
	audioURL, ok := ExtractAudioURL(item)
	if !ok {
		return podscribe.Episode{}, false, ErrNoAudio
	}

	ep := podscribe.Episode{
		FeedID: &feed.ID,
		URL:    audioURL,
	}
	if title := sanitize(item.Title); title != "" {
		ep.Title = &title
	}
	if item.PublishedParsed != nil {
		ep.ReleasedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		ep.ReleasedAt = item.UpdatedParsed
	}

	return in.store.EnsureEpisode(ctx, ep)
}

// ProcessFeed ingests every entry of the feed.
//
// Expected failures, like an inactive or unreachable feed, come back as a
// report with Error set. The returned error is only for store failures.
func (in *Ingestor) ProcessFeed(ctx context.Context, feedID string) (Report, error) {
	ctx = logger.Ctx(ctx, slog.String("feed_id", feedID))

	feed, err := in.store.Feed(ctx, feedID)
	if errors.Is(err, podscribe.ErrNotFound) {
		return Report{FeedID: feedID, Error: "feed not found"}, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("error loading feed: %w", err)
	}

	report := Report{FeedID: feed.ID, FeedName: feed.Name}
	if !feed.IsActive {
		slog.InfoContext(ctx, "feed is inactive, skipping")
		report.Error = "feed is marked as inactive"
		return report, nil
	}

	parsed, err := in.source.Fetch(ctx, feed.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch feed", "url", feed.URL, "err", err)
		report.Error = fmt.Sprintf("failed to fetch feed: %s", err)
		return report, nil
	}
	if len(parsed.Items) == 0 {
		slog.WarnContext(ctx, "no entries found in feed", "url", feed.URL)
		report.Error = "no entries found in feed"
		return report, nil
	}

	report.TotalEntries = len(parsed.Items)
	for _, item := range parsed.Items {
		ep, created, err := in.IngestEntry(ctx, feed, item)
		switch {
		case errors.Is(err, ErrNoAudio):
			slog.WarnContext(ctx, "no audio url found for entry", "title", item.Title)
			report.Failed++
		case err != nil:
			slog.ErrorContext(ctx, "failed to ingest entry", "title", item.Title, "err", err)
			report.Failed++
		case created:
			report.Created++
			report.CreatedEpisodeIDs = append(report.CreatedEpisodeIDs, ep.ID)
		default:
			report.Existing++
		}
	}

	args := podscribe.UpdateFeedArgs{LastProcessed: in.now()}
	if feed.HasPlaceholderName() && parsed.Title != "" {
		args.Name = parsed.Title
		report.FeedName = parsed.Title
	}
	if feed.Description == nil && parsed.Description != "" {
		args.Description = parsed.Description
	}
	if err := in.store.UpdateFeed(ctx, feed.ID, args); err != nil {
		return report, fmt.Errorf("error updating feed: %w", err)
	}

	slog.InfoContext(ctx, "feed processing complete",
		"total", report.TotalEntries,
		"created", report.Created,
		"existing", report.Existing,
		"failed", report.Failed,
	)

	return report, nil
}

// ProcessAllActiveFeeds processes each active feed on its own; one bad feed
// only shows up in its own report.
func (in *Ingestor) ProcessAllActiveFeeds(ctx context.Context) ([]Report, error) {
	feeds, err := in.store.ActiveFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing active feeds: %w", err)
	}

	reports := make([]Report, 0, len(feeds))
	for _, feed := range feeds {
		report, err := in.ProcessFeed(ctx, feed.ID)
		if err != nil {
			report = Report{FeedID: feed.ID, FeedName: feed.Name, Error: err.Error()}
		}
		reports = append(reports, report)
	}

	return reports, nil
}

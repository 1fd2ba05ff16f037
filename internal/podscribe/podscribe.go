// Package podscribe holds the domain types shared by the ingestion and
// generation pipeline: feeds, episodes, tags and the store contracts
// around them.
package podscribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")

	// ErrNoTranscript is the skip signal for generation steps that need a
	// transcript and were given a blank one.
	ErrNoTranscript = errors.New("no transcript available")
)

type (
	// Feed is a subscribed RSS source of episodes.
	Feed struct {
		ID              string     `db:"id"`
		URL             string     `db:"url"`
		Name            string     `db:"name"`
		Description     *string    `db:"description"`
		IsActive        bool       `db:"is_active"`
		LastProcessedAt *time.Time `db:"last_processed_at"`
		CreatedAt       time.Time  `db:"created_at"`
		UpdatedAt       time.Time  `db:"updated_at"`
	}

	// Episode is one podcast audio item along with everything generated from it.
	//
	// URL is always stored normalized, see [CleanURL].
	Episode struct {
		ID         string     `db:"id"`
		FeedID     *string    `db:"feed_id"`
		URL        string     `db:"url"`
		Title      *string    `db:"title"`
		ReleasedAt *time.Time `db:"released_at"`
		Transcript *string    `db:"transcript"`
		Script     *string    `db:"script"`
		Summary    *string    `db:"summary"`
		CreatedAt  time.Time  `db:"created_at"`
		UpdatedAt  time.Time  `db:"updated_at"`
	}

	// Tag is a topical label that can be applied to any number of episodes.
	Tag struct {
		ID          int64     `db:"id"`
		Name        string    `db:"name"`
		Slug        string    `db:"slug"`
		Description *string   `db:"description"`
		Color       *string   `db:"color"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	// Holds the optional fields for updating a feed.
	UpdateFeedArgs struct {
		Name          string
		Description   string
		IsActive      *bool
		LastProcessed time.Time
	}

	// Holds the optional fields for updating an episode.
	//
	// A nil field is left untouched, a non-nil one overwrites.
	UpdateEpisodeArgs struct {
		Title      *string
		Transcript *string
		Script     *string
		Summary    *string
	}
)

type (
	FeedRepo interface {
		Feed(ctx context.Context, id string) (Feed, error)
		FeedByURL(ctx context.Context, url string) (Feed, error)
		InsertFeed(ctx context.Context, feed Feed) (Feed, error)
		DeleteFeed(ctx context.Context, id string) error
		AllFeeds(ctx context.Context) ([]Feed, error)
		ActiveFeeds(ctx context.Context) ([]Feed, error)
		UpdateFeed(ctx context.Context, id string, args UpdateFeedArgs) error
	}

	EpisodeRepo interface {
		Episode(ctx context.Context, id string) (Episode, error)
		EpisodeByURL(ctx context.Context, url string) (Episode, error)
		// EnsureEpisode looks up the episode by its normalized URL and inserts it
		// when missing. The returned bool reports whether a row was created.
		EnsureEpisode(ctx context.Context, ep Episode) (Episode, bool, error)
		UpdateEpisode(ctx context.Context, id string, args UpdateEpisodeArgs) error
		FeedEpisodes(ctx context.Context, feedID string) ([]Episode, error)
	}

	TagRepo interface {
		Tag(ctx context.Context, id int64) (Tag, error)
		AllTags(ctx context.Context) ([]Tag, error)
		InsertTag(ctx context.Context, tag Tag) (Tag, error)
		EpisodeTags(ctx context.Context, episodeID string) ([]Tag, error)
		AddEpisodeTag(ctx context.Context, episodeID string, tagID int64) error
	}

	// Repository is everything the durable record store provides.
	Repository interface {
		FeedRepo
		EpisodeRepo
		TagRepo
	}
)

// PlaceholderFeedName is the name given to a feed created from nothing but its URL.
// It gets replaced with the source's title on the first successful fetch.
func PlaceholderFeedName(url string) string {
	return fmt.Sprintf("RSS Feed from %s", url)
}

// HasPlaceholderName reports if the feed still carries its auto-generated name.
func (f Feed) HasPlaceholderName() bool {
	return f.Name == PlaceholderFeedName(f.URL)
}

func (e Episode) HasTranscript() bool { return present(e.Transcript) }
func (e Episode) HasScript() bool     { return present(e.Script) }
func (e Episode) HasSummary() bool    { return present(e.Summary) }

// TranscriptText returns the transcript, or an empty string when there is none.
func (e Episode) TranscriptText() string {
	if e.Transcript == nil {
		return ""
	}
	return *e.Transcript
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

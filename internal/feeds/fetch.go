// Package feeds pulls podcast RSS feeds and turns their entries into episodes.
package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// ErrFetch is returned when a feed is unreachable or cannot be parsed at all.
var ErrFetch = errors.New("error fetching feed")

// Feeds larger than this are not podcasts we want.
const maxFeedBytes = 32 << 20

// ParsedFeed is the result of a successful fetch.
//
// Warnings lists oddities that didn't stop the parse, like a missing channel title.
type ParsedFeed struct {
	Title       string
	Description string
	Items       []*gofeed.Item
	Warnings    []string
}

type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Fetcher{
		client: client,
		parser: gofeed.NewParser(),
	}
}

// Fetch retrieves and parses the feed at feedURL.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (ParsedFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("%w: bad request: %s", ErrFetch, err)
	}
	req.Header.Set("User-Agent", "podscribe/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("%w: %s", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ParsedFeed{}, fmt.Errorf("%w: unexpected status code: %d", ErrFetch, resp.StatusCode)
	}

	byts, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("%w: error reading body: %s", ErrFetch, err)
	}

	feed, err := f.parser.Parse(bytes.NewReader(byts))
	if err != nil {
		return ParsedFeed{}, fmt.Errorf("%w: error parsing feed: %s", ErrFetch, err)
	}

	parsed := ParsedFeed{
		Title:       sanitize(feed.Title),
		Description: sanitize(feed.Description),
		Items:       feed.Items,
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "xml") && !strings.Contains(contentType, "rss") && !strings.Contains(contentType, "atom") {
		parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("unexpected content type %q", contentType))
	}
	if parsed.Title == "" {
		parsed.Warnings = append(parsed.Warnings, "feed has no title")
	}
	for _, w := range parsed.Warnings {
		slog.WarnContext(ctx, "feed parsed with issues", "url", feedURL, "warning", w)
	}

	return parsed, nil
}

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags from the string, usually a title.
//
// Also limits the length of the string so there's not a massive chunk of text being stored.
func sanitize(s string) string {
	s = strings.TrimSpace(stripPolicy.Sanitize(s))
	if r := []rune(s); len(r) > 1024 {
		s = string(r[:1024])
	}

	return s
}

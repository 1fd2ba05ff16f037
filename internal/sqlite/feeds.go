package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jdholdren/podscribe/internal/podscribe"
)

const feedNamespace = "-fd"

func (r Repo) Feed(ctx context.Context, id string) (podscribe.Feed, error) {
	const q = `SELECT * FROM feeds WHERE id = ?;`
	var feed podscribe.Feed
	err := r.db.GetContext(ctx, &feed, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return podscribe.Feed{}, podscribe.ErrNotFound
	}
	if err != nil {
		return podscribe.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

func (r Repo) FeedByURL(ctx context.Context, url string) (podscribe.Feed, error) {
	const q = `SELECT * FROM feeds WHERE url = ?;`

	var feed podscribe.Feed
	err := r.db.GetContext(ctx, &feed, q, url)
	if errors.Is(err, sql.ErrNoRows) {
		return podscribe.Feed{}, podscribe.ErrNotFound
	}
	if err != nil {
		return podscribe.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

// InsertFeed creates the feed. An empty name falls back to the placeholder name.
func (r Repo) InsertFeed(ctx context.Context, feed podscribe.Feed) (podscribe.Feed, error) {
	const q = `INSERT INTO feeds (id, url, name, description, is_active)
	VALUES (:id, :url, :name, :description, :is_active);`

	feed.ID = fmt.Sprintf("%s%s", uuid.NewString(), feedNamespace)
	if feed.Name == "" {
		feed.Name = podscribe.PlaceholderFeedName(feed.URL)
	}
	_, err := r.db.NamedExecContext(ctx, q, feed)
	if isUniqueViolation(err) {
		return podscribe.Feed{}, fmt.Errorf("feed already exists: %w", podscribe.ErrConflict)
	}
	if err != nil {
		return podscribe.Feed{}, fmt.Errorf("error inserting feed: %s", err)
	}

	return r.Feed(ctx, feed.ID)
}

// DeleteFeed removes the feed, and with it all of its episodes.
func (r Repo) DeleteFeed(ctx context.Context, id string) error {
	const q = `DELETE FROM feeds WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error deleting feed: %s", err)
	}

	return nil
}

// AllFeeds retrieves _all_ feeds from the database.
func (r Repo) AllFeeds(ctx context.Context) ([]podscribe.Feed, error) {
	const q = "SELECT * FROM feeds ORDER BY created_at DESC;"

	var feeds []podscribe.Feed
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting all feeds: %s", err)
	}

	return feeds, nil
}

func (r Repo) ActiveFeeds(ctx context.Context) ([]podscribe.Feed, error) {
	const q = "SELECT * FROM feeds WHERE is_active = 1;"

	var feeds []podscribe.Feed
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting active feeds: %s", err)
	}

	return feeds, nil
}

func (r Repo) UpdateFeed(ctx context.Context, id string, args podscribe.UpdateFeedArgs) error {
	q := sq.Update("feeds").Set("updated_at", sq.Expr("CURRENT_TIMESTAMP"))
	if args.Name != "" {
		q = q.Set("name", args.Name)
	}
	if args.Description != "" {
		q = q.Set("description", args.Description)
	}
	if args.IsActive != nil {
		q = q.Set("is_active", *args.IsActive)
	}
	if !args.LastProcessed.IsZero() {
		q = q.Set("last_processed_at", args.LastProcessed)
	}
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, qArgs...); err != nil {
		return fmt.Errorf("error executing feed update: %s", err)
	}

	return nil
}

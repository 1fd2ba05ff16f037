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

const episodeNamespace = "-ep"

func (r Repo) Episode(ctx context.Context, id string) (podscribe.Episode, error) {
	const q = `SELECT * FROM episodes WHERE id = ?;`

	var ep podscribe.Episode
	err := r.db.GetContext(ctx, &ep, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return podscribe.Episode{}, podscribe.ErrNotFound
	}
	if err != nil {
		return podscribe.Episode{}, fmt.Errorf("error fetching episode: %s", err)
	}

	return ep, nil
}

// EpisodeByURL finds the episode for an audio URL, in whatever form it was given.
func (r Repo) EpisodeByURL(ctx context.Context, url string) (podscribe.Episode, error) {
	const q = `SELECT * FROM episodes WHERE url = ?;`

	var ep podscribe.Episode
	err := r.db.GetContext(ctx, &ep, q, podscribe.CleanURL(url))
	if errors.Is(err, sql.ErrNoRows) {
		return podscribe.Episode{}, podscribe.ErrNotFound
	}
	if err != nil {
		return podscribe.Episode{}, fmt.Errorf("error fetching episode: %s", err)
	}

	return ep, nil
}

// EnsureEpisode is the one write path for new episodes, so the URL is
// normalized here and nowhere else.
func (r Repo) EnsureEpisode(ctx context.Context, ep podscribe.Episode) (podscribe.Episode, bool, error) {
	const q = `INSERT INTO episodes (id, feed_id, url, title, released_at)
	VALUES (:id, :feed_id, :url, :title, :released_at)
	ON CONFLICT(url) DO NOTHING;`

	ep.ID = fmt.Sprintf("%s%s", uuid.NewString(), episodeNamespace)
	ep.URL = podscribe.CleanURL(ep.URL)
	res, err := r.db.NamedExecContext(ctx, q, ep)
	if err != nil {
		return podscribe.Episode{}, false, fmt.Errorf("error inserting episode: %s", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return podscribe.Episode{}, false, fmt.Errorf("error reading affected rows: %s", err)
	}

	stored, err := r.EpisodeByURL(ctx, ep.URL)
	if err != nil {
		return podscribe.Episode{}, false, err
	}

	return stored, affected == 1, nil
}

func (r Repo) UpdateEpisode(ctx context.Context, id string, args podscribe.UpdateEpisodeArgs) error {
	q := sq.Update("episodes").Set("updated_at", sq.Expr("CURRENT_TIMESTAMP"))
	if args.Title != nil {
		q = q.Set("title", *args.Title)
	}
	if args.Transcript != nil {
		q = q.Set("transcript", *args.Transcript)
	}
	if args.Script != nil {
		q = q.Set("script", *args.Script)
	}
	if args.Summary != nil {
		q = q.Set("summary", *args.Summary)
	}
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	res, err := r.db.ExecContext(ctx, query, qArgs...)
	if err != nil {
		return fmt.Errorf("error executing episode update: %s", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return podscribe.ErrNotFound
	}

	return nil
}

func (r Repo) FeedEpisodes(ctx context.Context, feedID string) ([]podscribe.Episode, error) {
	const q = `SELECT * FROM episodes WHERE feed_id = ? ORDER BY released_at DESC, created_at DESC;`

	var eps []podscribe.Episode
	if err := r.db.SelectContext(ctx, &eps, q, feedID); err != nil {
		return nil, fmt.Errorf("error selecting feed episodes: %s", err)
	}

	return eps, nil
}

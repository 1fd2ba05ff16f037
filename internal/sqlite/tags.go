package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jdholdren/podscribe/internal/podscribe"
)

func (r Repo) Tag(ctx context.Context, id int64) (podscribe.Tag, error) {
	const q = `SELECT * FROM tags WHERE id = ?;`

	var tag podscribe.Tag
	err := r.db.GetContext(ctx, &tag, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return podscribe.Tag{}, podscribe.ErrNotFound
	}
	if err != nil {
		return podscribe.Tag{}, fmt.Errorf("error fetching tag: %s", err)
	}

	return tag, nil
}

func (r Repo) AllTags(ctx context.Context) ([]podscribe.Tag, error) {
	const q = `SELECT * FROM tags ORDER BY name;`

	var tags []podscribe.Tag
	if err := r.db.SelectContext(ctx, &tags, q); err != nil {
		return nil, fmt.Errorf("error selecting tags: %s", err)
	}

	return tags, nil
}

// InsertTag creates the tag, deriving the slug from the name when it isn't set.
//
// Both name and slug are unique; a clash on either is an [podscribe.ErrConflict].
func (r Repo) InsertTag(ctx context.Context, tag podscribe.Tag) (podscribe.Tag, error) {
	const q = `INSERT INTO tags (name, slug, description, color)
	VALUES (:name, :slug, :description, :color);`

	if tag.Slug == "" {
		tag.Slug = podscribe.Slugify(tag.Name)
	}
	res, err := r.db.NamedExecContext(ctx, q, tag)
	if isUniqueViolation(err) {
		return podscribe.Tag{}, fmt.Errorf("tag already exists: %w", podscribe.ErrConflict)
	}
	if err != nil {
		return podscribe.Tag{}, fmt.Errorf("error inserting tag: %s", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return podscribe.Tag{}, fmt.Errorf("error reading tag id: %s", err)
	}

	return r.Tag(ctx, id)
}

func (r Repo) EpisodeTags(ctx context.Context, episodeID string) ([]podscribe.Tag, error) {
	const q = `
	SELECT
		t.*
	FROM
		tags t
		INNER JOIN episode_tags et ON et.tag_id = t.id
	WHERE
		et.episode_id = ?
	ORDER BY t.name;
	`

	var tags []podscribe.Tag
	if err := r.db.SelectContext(ctx, &tags, q, episodeID); err != nil {
		return nil, fmt.Errorf("error selecting episode tags: %s", err)
	}

	return tags, nil
}

// AddEpisodeTag associates the tag with the episode. Adding a tag twice is a no-op.
func (r Repo) AddEpisodeTag(ctx context.Context, episodeID string, tagID int64) error {
	const q = `INSERT OR IGNORE INTO episode_tags (episode_id, tag_id) VALUES (?, ?);`

	if _, err := r.db.ExecContext(ctx, q, episodeID, tagID); err != nil {
		return fmt.Errorf("error adding episode tag: %s", err)
	}

	return nil
}

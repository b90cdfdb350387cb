package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

const tweetSelect = `
	SELECT t.id, t.content, t.created_at, t.updated_at,
	       u.id, u.username, u.full_name, u.avatar
	FROM tweets t
	JOIN users u ON u.id = t.owner_id`

var tweetSortColumns = map[string]string{
	repository.SortCreatedAt: "t.created_at",
	repository.SortUpdatedAt: "t.updated_at",
}

func scanTweet(row interface{ Scan(...any) error }) (*model.Tweet, error) {
	var t model.Tweet
	err := row.Scan(
		&t.ID, &t.Content, &t.CreatedAt, &t.UpdatedAt,
		&t.Owner.ID, &t.Owner.Username, &t.Owner.FullName, &t.Owner.Avatar,
	)
	if err != nil {
		return nil, err
	}
	t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	return &t, nil
}

func (db *DB) CreateTweet(ctx context.Context, t *model.Tweet) (err error) {
	defer observe("create_tweet", time.Now(), &err)

	t.ID = xid.New().String()
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO tweets (id, owner_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Owner.ID, t.Content, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", t.Owner.ID)
		}
		return fmt.Errorf("sqlite: creating tweet: %w", err)
	}
	return nil
}

func (db *DB) GetTweetByID(ctx context.Context, id string) (_ *model.Tweet, err error) {
	defer observe("get_tweet", time.Now(), &err)

	t, err := scanTweet(db.conn.QueryRowContext(ctx, tweetSelect+` WHERE t.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tweet", id)
		}
		return nil, fmt.Errorf("sqlite: getting tweet %s: %w", id, err)
	}
	return t, nil
}

func (db *DB) ListTweetsByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) (_ []model.Tweet, _ int64, err error) {
	defer observe("list_tweets", time.Now(), &err)
	opts = opts.Normalized()

	var total int64
	if err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tweets WHERE owner_id = ?`, ownerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting tweets: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		tweetSelect+` WHERE t.owner_id = ? `+orderClause(opts, tweetSortColumns)+` LIMIT ? OFFSET ?`,
		ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing tweets: %w", err)
	}
	defer rows.Close()

	tweets := make([]model.Tweet, 0, opts.Limit)
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning tweet: %w", err)
		}
		tweets = append(tweets, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating tweets: %w", err)
	}
	return tweets, total, nil
}

func (db *DB) UpdateTweet(ctx context.Context, t *model.Tweet) (err error) {
	defer observe("update_tweet", time.Now(), &err)

	t.UpdatedAt = now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE tweets SET content = ?, updated_at = ? WHERE id = ?`,
		t.Content, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating tweet %s: %w", t.ID, err)
	}
	return requireAffected(res, "tweet", t.ID)
}

func (db *DB) DeleteTweet(ctx context.Context, id string) (err error) {
	defer observe("delete_tweet", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx, `DELETE FROM tweets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tweet %s: %w", id, err)
	}
	return requireAffected(res, "tweet", id)
}

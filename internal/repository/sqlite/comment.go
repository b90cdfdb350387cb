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

const commentSelect = `
	SELECT c.id, c.content, c.video_id, c.created_at, c.updated_at,
	       u.id, u.username, u.full_name, u.avatar
	FROM comments c
	JOIN users u ON u.id = c.owner_id`

var commentSortColumns = map[string]string{
	repository.SortCreatedAt: "c.created_at",
	repository.SortUpdatedAt: "c.updated_at",
}

func scanComment(row interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	err := row.Scan(
		&c.ID, &c.Content, &c.VideoID, &c.CreatedAt, &c.UpdatedAt,
		&c.Owner.ID, &c.Owner.Username, &c.Owner.FullName, &c.Owner.Avatar,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC()
	return &c, nil
}

func (db *DB) CreateComment(ctx context.Context, c *model.Comment) (err error) {
	defer observe("create_comment", time.Now(), &err)

	c.ID = xid.New().String()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.VideoID, c.Owner.ID, c.Content, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("video", c.VideoID)
		}
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}
	return nil
}

func (db *DB) GetCommentByID(ctx context.Context, id string) (_ *model.Comment, err error) {
	defer observe("get_comment", time.Now(), &err)

	c, err := scanComment(db.conn.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return c, nil
}

func (db *DB) ListCommentsByVideo(ctx context.Context, videoID string, opts repository.ListOptions) (_ []model.Comment, _ int64, err error) {
	defer observe("list_comments", time.Now(), &err)
	opts = opts.Normalized()

	var total int64
	if err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE video_id = ?`, videoID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting comments: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.video_id = ? `+orderClause(opts, commentSortColumns)+` LIMIT ? OFFSET ?`,
		videoID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, opts.Limit)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, total, nil
}

func (db *DB) UpdateComment(ctx context.Context, c *model.Comment) (err error) {
	defer observe("update_comment", time.Now(), &err)

	c.UpdatedAt = now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		c.Content, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", c.ID, err)
	}
	return requireAffected(res, "comment", c.ID)
}

func (db *DB) DeleteComment(ctx context.Context, id string) (err error) {
	defer observe("delete_comment", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return requireAffected(res, "comment", id)
}

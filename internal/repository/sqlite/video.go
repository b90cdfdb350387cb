package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

// videoSelect joins the owner summary onto every video row.
const videoSelect = `
	SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.views,
	       v.is_published, v.created_at, v.updated_at,
	       u.id, u.username, u.full_name, u.avatar
	FROM videos v
	JOIN users u ON u.id = v.owner_id`

var videoSortColumns = map[string]string{
	repository.SortCreatedAt: "v.created_at",
	repository.SortUpdatedAt: "v.updated_at",
	repository.SortViews:     "v.views",
	repository.SortDuration:  "v.duration",
	repository.SortTitle:     "v.title",
}

func scanVideo(row interface{ Scan(...any) error }) (*model.Video, error) {
	var v model.Video
	err := row.Scan(
		&v.ID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Description, &v.Duration, &v.Views,
		&v.IsPublished, &v.CreatedAt, &v.UpdatedAt,
		&v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar,
	)
	if err != nil {
		return nil, err
	}
	v.CreatedAt, v.UpdatedAt = v.CreatedAt.UTC(), v.UpdatedAt.UTC()
	return &v, nil
}

// CreateVideo inserts v owned by v.Owner.ID.
func (db *DB) CreateVideo(ctx context.Context, v *model.Video) (err error) {
	defer observe("create_video", time.Now(), &err)

	v.ID = xid.New().String()
	v.CreatedAt = now()
	v.UpdatedAt = v.CreatedAt

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO videos (id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Owner.ID, v.VideoFile, v.Thumbnail, v.Title, v.Description, v.Duration, v.Views,
		v.IsPublished, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", v.Owner.ID)
		}
		return fmt.Errorf("sqlite: creating video: %w", err)
	}
	return nil
}

func (db *DB) GetVideoByID(ctx context.Context, id string) (_ *model.Video, err error) {
	defer observe("get_video", time.Now(), &err)

	v, err := scanVideo(db.conn.QueryRowContext(ctx, videoSelect+` WHERE v.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("video", id)
		}
		return nil, fmt.Errorf("sqlite: getting video %s: %w", id, err)
	}
	return v, nil
}

// ListVideos returns one page of videos matching filter plus the total
// number of matches.
func (db *DB) ListVideos(ctx context.Context, filter repository.VideoFilter, opts repository.ListOptions) (_ []model.Video, _ int64, err error) {
	defer observe("list_videos", time.Now(), &err)
	opts = opts.Normalized()

	var (
		where []string
		args  []any
	)
	where = append(where, `(v.is_published = 1 OR v.owner_id = ?)`)
	args = append(args, filter.ViewerID)
	if filter.OwnerID != "" {
		where = append(where, `v.owner_id = ?`)
		args = append(args, filter.OwnerID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, `(v.title LIKE ? ESCAPE '\' OR v.description LIKE ? ESCAPE '\')`)
		p := likePattern(q)
		args = append(args, p, p)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM videos v`+clause, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting videos: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		videoSelect+clause+" "+orderClause(opts, videoSortColumns)+` LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing videos: %w", err)
	}
	defer rows.Close()

	videos := make([]model.Video, 0, opts.Limit)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning video: %w", err)
		}
		videos = append(videos, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating videos: %w", err)
	}
	return videos, total, nil
}

func (db *DB) UpdateVideo(ctx context.Context, v *model.Video) (err error) {
	defer observe("update_video", time.Now(), &err)

	v.UpdatedAt = now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE videos SET title = ?, description = ?, thumbnail = ?, updated_at = ? WHERE id = ?`,
		v.Title, v.Description, v.Thumbnail, v.UpdatedAt, v.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating video %s: %w", v.ID, err)
	}
	return requireAffected(res, "video", v.ID)
}

// DeleteVideo relies on ON DELETE CASCADE for comments, likes (including
// likes on the deleted comments), playlist entries and watch history.
func (db *DB) DeleteVideo(ctx context.Context, id string) (err error) {
	defer observe("delete_video", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting video %s: %w", id, err)
	}
	return requireAffected(res, "video", id)
}

func (db *DB) ToggleVideoPublished(ctx context.Context, id string) (_ bool, err error) {
	defer observe("toggle_video_published", time.Now(), &err)

	var published bool
	err = db.conn.QueryRowContext(ctx,
		`UPDATE videos SET is_published = NOT is_published, updated_at = ?
		 WHERE id = ?
		 RETURNING is_published`,
		now(), id,
	).Scan(&published)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperror.NotFound("video", id)
		}
		return false, fmt.Errorf("sqlite: toggling publish flag of %s: %w", id, err)
	}
	return published, nil
}

// IncrementVideoViews leaves updated_at alone; a view is not an edit.
func (db *DB) IncrementVideoViews(ctx context.Context, id string) (err error) {
	defer observe("increment_video_views", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx, `UPDATE videos SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing views of %s: %w", id, err)
	}
	return requireAffected(res, "video", id)
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

// likeColumn maps a like kind onto its target column in the likes table.
var likeColumn = map[model.LikeKind]string{
	model.LikeVideo:   "video_id",
	model.LikeComment: "comment_id",
	model.LikeTweet:   "tweet_id",
}

// ToggleLike deletes the like if present, otherwise inserts it, inside one
// transaction.
func (db *DB) ToggleLike(ctx context.Context, l *model.Like) (_ bool, err error) {
	defer observe("toggle_like", time.Now(), &err)

	col, ok := likeColumn[l.Target.Kind]
	if !ok {
		return false, apperror.BadRequest(fmt.Sprintf("unknown like kind %q", l.Target.Kind))
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning like toggle: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM likes WHERE liked_by = ? AND `+col+` = ?`, l.LikedBy, l.Target.ID)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing like on %s: %w", l.Target, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: removing like on %s: %w", l.Target, err)
	}
	if n > 0 {
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("sqlite: committing unlike: %w", err)
		}
		return false, nil
	}

	l.ID = xid.New().String()
	l.CreatedAt = now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO likes (id, liked_by, `+col+`, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.LikedBy, l.Target.ID, l.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound(string(l.Target.Kind), l.Target.ID)
		}
		return false, fmt.Errorf("sqlite: inserting like on %s: %w", l.Target, err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing like: %w", err)
	}
	return true, nil
}

func (db *DB) ListLikedVideos(ctx context.Context, userID string) (_ []model.VideoSummary, err error) {
	defer observe("list_liked_videos", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT v.id, v.title, v.thumbnail
		 FROM likes l
		 JOIN videos v ON v.id = l.video_id
		 WHERE l.liked_by = ? AND l.video_id IS NOT NULL
		 ORDER BY l.created_at, l.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing liked videos: %w", err)
	}
	defer rows.Close()

	return scanVideoSummaries(rows)
}

func scanVideoSummaries(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]model.VideoSummary, error) {
	out := []model.VideoSummary{}
	for rows.Next() {
		var v model.VideoSummary
		if err := rows.Scan(&v.ID, &v.Title, &v.Thumbnail); err != nil {
			return nil, fmt.Errorf("sqlite: scanning video summary: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating video summaries: %w", err)
	}
	return out, nil
}

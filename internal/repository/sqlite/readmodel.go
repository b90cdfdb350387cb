package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

// ChannelProfile computes both counts and the viewer's subscription state in
// a single query.
func (db *DB) ChannelProfile(ctx context.Context, username, viewerID string) (_ *model.ChannelProfile, err error) {
	defer observe("channel_profile", time.Now(), &err)

	username = strings.ToLower(strings.TrimSpace(username))

	var p model.ChannelProfile
	err = db.conn.QueryRowContext(ctx,
		`SELECT u.id, u.full_name, u.username, u.email, u.avatar, u.cover_image, u.created_at,
		        (SELECT COUNT(*) FROM subscriptions WHERE channel_id = u.id),
		        (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = u.id),
		        EXISTS (SELECT 1 FROM subscriptions WHERE channel_id = u.id AND subscriber_id = ?)
		 FROM users u
		 WHERE u.username = ?`,
		viewerID, username,
	).Scan(
		&p.ID, &p.FullName, &p.Username, &p.Email, &p.Avatar, &p.CoverImage, &p.CreatedAt,
		&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("Channel not found")
		}
		return nil, fmt.Errorf("sqlite: loading channel %s: %w", username, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// WatchHistory joins away deleted videos; the cascade on watch_history
// normally removes them first.
func (db *DB) WatchHistory(ctx context.Context, userID string) (_ []model.WatchedVideo, err error) {
	defer observe("watch_history", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT v.id, v.video_file, v.thumbnail, v.title, v.description, v.duration, v.views,
		        v.is_published, v.created_at, v.updated_at,
		        u.full_name, u.username, u.email
		 FROM watch_history h
		 JOIN videos v ON v.id = h.video_id
		 JOIN users u ON u.id = v.owner_id
		 WHERE h.user_id = ?
		 ORDER BY h.position`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading watch history: %w", err)
	}
	defer rows.Close()

	out := []model.WatchedVideo{}
	for rows.Next() {
		var w model.WatchedVideo
		if err := rows.Scan(
			&w.ID, &w.VideoFile, &w.Thumbnail, &w.Title, &w.Description, &w.Duration, &w.Views,
			&w.IsPublished, &w.CreatedAt, &w.UpdatedAt,
			&w.Owner.FullName, &w.Owner.Username, &w.Owner.Email,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning watch history: %w", err)
		}
		w.CreatedAt, w.UpdatedAt = w.CreatedAt.UTC(), w.UpdatedAt.UTC()
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating watch history: %w", err)
	}
	return out, nil
}

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
)

const playlistSelect = `
	SELECT p.id, p.name, p.description, p.created_at, p.updated_at,
	       u.id, u.username, u.full_name, u.avatar
	FROM playlists p
	JOIN users u ON u.id = p.owner_id`

func scanPlaylist(row interface{ Scan(...any) error }) (*model.Playlist, error) {
	var p model.Playlist
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt,
		&p.Owner.ID, &p.Owner.Username, &p.Owner.FullName, &p.Owner.Avatar,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	p.Videos = []model.VideoSummary{}
	return &p, nil
}

func (db *DB) CreatePlaylist(ctx context.Context, p *model.Playlist) (err error) {
	defer observe("create_playlist", time.Now(), &err)

	p.ID = xid.New().String()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	if p.Videos == nil {
		p.Videos = []model.VideoSummary{}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Owner.ID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", p.Owner.ID)
		}
		return fmt.Errorf("sqlite: creating playlist: %w", err)
	}
	return nil
}

func (db *DB) GetPlaylistByID(ctx context.Context, id string) (_ *model.Playlist, err error) {
	defer observe("get_playlist", time.Now(), &err)

	p, err := scanPlaylist(db.conn.QueryRowContext(ctx, playlistSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("playlist", id)
		}
		return nil, fmt.Errorf("sqlite: getting playlist %s: %w", id, err)
	}
	if p.Videos, err = db.playlistVideos(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) playlistVideos(ctx context.Context, playlistID string) ([]model.VideoSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT v.id, v.title, v.thumbnail
		 FROM playlist_videos pv
		 JOIN videos v ON v.id = pv.video_id
		 WHERE pv.playlist_id = ?
		 ORDER BY pv.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing videos of playlist %s: %w", playlistID, err)
	}
	defer rows.Close()
	return scanVideoSummaries(rows)
}

// ListPlaylistsByOwner returns the owner's playlists, newest first, each with
// its videos populated.
func (db *DB) ListPlaylistsByOwner(ctx context.Context, ownerID string) (_ []model.Playlist, err error) {
	defer observe("list_playlists", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		playlistSelect+` WHERE p.owner_id = ? ORDER BY p.created_at DESC, p.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing playlists: %w", err)
	}

	playlists := []model.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning playlist: %w", err)
		}
		playlists = append(playlists, *p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("sqlite: iterating playlists: %w", err)
	}

	// The single pooled connection is free again once rows is closed.
	for i := range playlists {
		if playlists[i].Videos, err = db.playlistVideos(ctx, playlists[i].ID); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

func (db *DB) UpdatePlaylist(ctx context.Context, p *model.Playlist) (err error) {
	defer observe("update_playlist", time.Now(), &err)

	p.UpdatedAt = now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE playlists SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating playlist %s: %w", p.ID, err)
	}
	return requireAffected(res, "playlist", p.ID)
}

func (db *DB) DeletePlaylist(ctx context.Context, id string) (err error) {
	defer observe("delete_playlist", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting playlist %s: %w", id, err)
	}
	return requireAffected(res, "playlist", id)
}

// AddVideoToPlaylist appends videoID after the current last entry. The
// primary key on (playlist_id, video_id) makes a repeat add a no-op.
func (db *DB) AddVideoToPlaylist(ctx context.Context, playlistID, videoID string) (_ bool, err error) {
	defer observe("add_playlist_video", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO playlist_videos (playlist_id, video_id, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_videos WHERE playlist_id = ?))
		 ON CONFLICT (playlist_id, video_id) DO NOTHING`,
		playlistID, videoID, playlistID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFoundMessage("Playlist or video not found")
		}
		return false, fmt.Errorf("sqlite: adding %s to playlist %s: %w", videoID, playlistID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: adding %s to playlist %s: %w", videoID, playlistID, err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE playlists SET updated_at = ? WHERE id = ?`, now(), playlistID)
	if err != nil {
		return false, fmt.Errorf("sqlite: touching playlist %s: %w", playlistID, err)
	}
	return true, nil
}

// RemoveVideoFromPlaylist is a no-op when the video is not in the playlist.
func (db *DB) RemoveVideoFromPlaylist(ctx context.Context, playlistID, videoID string) (err error) {
	defer observe("remove_playlist_video", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM playlist_videos WHERE playlist_id = ? AND video_id = ?`, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("sqlite: removing %s from playlist %s: %w", videoID, playlistID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err = db.conn.ExecContext(ctx,
			`UPDATE playlists SET updated_at = ? WHERE id = ?`, now(), playlistID); err != nil {
			return fmt.Errorf("sqlite: touching playlist %s: %w", playlistID, err)
		}
	}
	return nil
}

package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

func (db *DB) CreatePlaylist(ctx context.Context, p *model.Playlist) (err error) {
	defer observe("create_playlist", time.Now(), &err)

	owner, err := objectID("user", p.Owner.ID)
	if err != nil {
		return err
	}
	doc := playlistDoc{
		ID:          primitive.NewObjectID(),
		Name:        p.Name,
		Description: p.Description,
		Owner:       owner,
		Videos:      []primitive.ObjectID{},
		CreatedAt:   now(),
	}
	doc.UpdatedAt = doc.CreatedAt
	if _, err = db.col(colPlaylists).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating playlist: %w", err)
	}
	p.ID = doc.ID.Hex()
	p.CreatedAt, p.UpdatedAt = doc.CreatedAt, doc.UpdatedAt
	if p.Videos == nil {
		p.Videos = []model.VideoSummary{}
	}
	return nil
}

func (db *DB) GetPlaylistByID(ctx context.Context, id string) (_ *model.Playlist, err error) {
	defer observe("get_playlist", time.Now(), &err)

	oid, err := objectID("playlist", id)
	if err != nil {
		return nil, err
	}
	var view playlistView
	found, err := db.aggregateOne(ctx, colPlaylists, playlistPipeline(bson.D{{Key: "_id", Value: oid}}, false), &view)
	if err != nil {
		return nil, fmt.Errorf("mongo: getting playlist %s: %w", id, err)
	}
	if !found {
		return nil, apperror.NotFound("playlist", id)
	}
	p := view.toModel()
	return &p, nil
}

func (db *DB) ListPlaylistsByOwner(ctx context.Context, ownerID string) (_ []model.Playlist, err error) {
	defer observe("list_playlists", time.Now(), &err)

	owner, err := objectID("user", ownerID)
	if err != nil {
		return []model.Playlist{}, nil
	}
	var views []playlistView
	if err = db.aggregateAll(ctx, colPlaylists, playlistPipeline(bson.D{{Key: "owner", Value: owner}}, true), &views); err != nil {
		return nil, fmt.Errorf("mongo: listing playlists: %w", err)
	}
	out := make([]model.Playlist, 0, len(views))
	for i := range views {
		out = append(out, views[i].toModel())
	}
	return out, nil
}

func (db *DB) UpdatePlaylist(ctx context.Context, p *model.Playlist) (err error) {
	defer observe("update_playlist", time.Now(), &err)

	oid, err := objectID("playlist", p.ID)
	if err != nil {
		return err
	}
	p.UpdatedAt = now()
	res, err := db.col(colPlaylists).UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: p.Name},
		{Key: "description", Value: p.Description},
		{Key: "updatedAt", Value: p.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("mongo: updating playlist %s: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("playlist", p.ID)
	}
	return nil
}

func (db *DB) DeletePlaylist(ctx context.Context, id string) (err error) {
	defer observe("delete_playlist", time.Now(), &err)

	oid, err := objectID("playlist", id)
	if err != nil {
		return err
	}
	res, err := db.col(colPlaylists).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("mongo: deleting playlist %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("playlist", id)
	}
	return nil
}

// AddVideoToPlaylist pushes only when the video is absent, so the filter
// does the duplicate check atomically.
func (db *DB) AddVideoToPlaylist(ctx context.Context, playlistID, videoID string) (_ bool, err error) {
	defer observe("add_playlist_video", time.Now(), &err)

	pid, err := objectID("playlist", playlistID)
	if err != nil {
		return false, err
	}
	vid, err := objectID("video", videoID)
	if err != nil {
		return false, err
	}
	ok, err := db.exists(ctx, colVideos, vid)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, apperror.NotFound("video", videoID)
	}

	res, err := db.col(colPlaylists).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: pid}, {Key: "videos", Value: bson.D{{Key: "$ne", Value: vid}}}},
		bson.D{
			{Key: "$push", Value: bson.D{{Key: "videos", Value: vid}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now()}}},
		})
	if err != nil {
		return false, fmt.Errorf("mongo: adding %s to playlist %s: %w", videoID, playlistID, err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	ok, err = db.exists(ctx, colPlaylists, pid)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, apperror.NotFound("playlist", playlistID)
	}
	return false, nil
}

func (db *DB) RemoveVideoFromPlaylist(ctx context.Context, playlistID, videoID string) (err error) {
	defer observe("remove_playlist_video", time.Now(), &err)

	pid, err := objectID("playlist", playlistID)
	if err != nil {
		return err
	}
	vid, err := objectID("video", videoID)
	if err != nil {
		return nil
	}
	_, err = db.col(colPlaylists).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: pid}, {Key: "videos", Value: vid}},
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: "videos", Value: vid}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now()}}},
		})
	if err != nil {
		return fmt.Errorf("mongo: removing %s from playlist %s: %w", videoID, playlistID, err)
	}
	return nil
}

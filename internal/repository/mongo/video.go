package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

func (db *DB) CreateVideo(ctx context.Context, v *model.Video) (err error) {
	defer observe("create_video", time.Now(), &err)

	owner, err := objectID("user", v.Owner.ID)
	if err != nil {
		return err
	}
	doc := videoDoc{
		ID:          primitive.NewObjectID(),
		VideoFile:   v.VideoFile,
		Thumbnail:   v.Thumbnail,
		Title:       v.Title,
		Description: v.Description,
		Duration:    v.Duration,
		Views:       v.Views,
		IsPublished: v.IsPublished,
		Owner:       owner,
		CreatedAt:   now(),
	}
	doc.UpdatedAt = doc.CreatedAt

	if _, err = db.col(colVideos).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating video: %w", err)
	}
	v.ID = doc.ID.Hex()
	v.CreatedAt, v.UpdatedAt = doc.CreatedAt, doc.UpdatedAt
	return nil
}

func (db *DB) GetVideoByID(ctx context.Context, id string) (_ *model.Video, err error) {
	defer observe("get_video", time.Now(), &err)

	oid, err := objectID("video", id)
	if err != nil {
		return nil, err
	}
	pipeline := append(mongodrv.Pipeline{{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}}}, ownerLookup()...)

	var view videoView
	found, err := db.aggregateOne(ctx, colVideos, pipeline, &view)
	if err != nil {
		return nil, fmt.Errorf("mongo: getting video %s: %w", id, err)
	}
	if !found {
		return nil, apperror.NotFound("video", id)
	}
	v := view.toModel()
	return &v, nil
}

func (db *DB) ListVideos(ctx context.Context, filter repository.VideoFilter, opts repository.ListOptions) (_ []model.Video, _ int64, err error) {
	defer observe("list_videos", time.Now(), &err)
	opts = opts.Normalized()

	var owner primitive.ObjectID
	if filter.OwnerID != "" {
		// A malformed owner id matches nothing rather than everything.
		if owner, err = objectID("user", filter.OwnerID); err != nil {
			return []model.Video{}, 0, nil
		}
	}
	match := videoMatch(owner, optionalObjectID(filter.ViewerID), filter.Query)

	var res facetResult[videoView]
	if _, err = db.aggregateOne(ctx, colVideos, pagedPipeline(match, opts), &res); err != nil {
		return nil, 0, fmt.Errorf("mongo: listing videos: %w", err)
	}
	videos := make([]model.Video, 0, len(res.Items))
	for i := range res.Items {
		videos = append(videos, res.Items[i].toModel())
	}
	return videos, res.total(), nil
}

func (db *DB) UpdateVideo(ctx context.Context, v *model.Video) (err error) {
	defer observe("update_video", time.Now(), &err)

	oid, err := objectID("video", v.ID)
	if err != nil {
		return err
	}
	v.UpdatedAt = now()
	res, err := db.col(colVideos).UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: v.Title},
		{Key: "description", Value: v.Description},
		{Key: "thumbnail", Value: v.Thumbnail},
		{Key: "updatedAt", Value: v.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("mongo: updating video %s: %w", v.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("video", v.ID)
	}
	return nil
}

// DeleteVideo removes the video, then everything that points at it. The
// follow-up writes are not transactional; a failure part way leaves
// orphans that every read path already skips.
func (db *DB) DeleteVideo(ctx context.Context, id string) (err error) {
	defer observe("delete_video", time.Now(), &err)

	oid, err := objectID("video", id)
	if err != nil {
		return err
	}
	res, err := db.col(colVideos).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("mongo: deleting video %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("video", id)
	}

	commentIDs, err := db.col(colComments).Distinct(ctx, "_id", bson.D{{Key: "video", Value: oid}})
	if err != nil {
		return fmt.Errorf("mongo: collecting comments of %s: %w", id, err)
	}
	if commentIDs == nil {
		commentIDs = []any{}
	}
	if _, err = db.col(colComments).DeleteMany(ctx, bson.D{{Key: "video", Value: oid}}); err != nil {
		return fmt.Errorf("mongo: deleting comments of %s: %w", id, err)
	}
	likeFilter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "video", Value: oid}},
		bson.D{{Key: "comment", Value: bson.D{{Key: "$in", Value: commentIDs}}}},
	}}}
	if _, err = db.col(colLikes).DeleteMany(ctx, likeFilter); err != nil {
		return fmt.Errorf("mongo: deleting likes of %s: %w", id, err)
	}
	pull := bson.D{{Key: "$pull", Value: bson.D{{Key: "videos", Value: oid}}}}
	if _, err = db.col(colPlaylists).UpdateMany(ctx, bson.D{{Key: "videos", Value: oid}}, pull); err != nil {
		return fmt.Errorf("mongo: removing %s from playlists: %w", id, err)
	}
	pull = bson.D{{Key: "$pull", Value: bson.D{{Key: "watchHistory", Value: oid}}}}
	if _, err = db.col(colUsers).UpdateMany(ctx, bson.D{{Key: "watchHistory", Value: oid}}, pull); err != nil {
		return fmt.Errorf("mongo: removing %s from watch history: %w", id, err)
	}
	return nil
}

func (db *DB) ToggleVideoPublished(ctx context.Context, id string) (_ bool, err error) {
	defer observe("toggle_video_published", time.Now(), &err)

	oid, err := objectID("video", id)
	if err != nil {
		return false, err
	}
	var doc videoDoc
	err = db.col(colVideos).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		publishToggleUpdate(now()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return false, apperror.NotFound("video", id)
		}
		return false, fmt.Errorf("mongo: toggling publish flag of %s: %w", id, err)
	}
	return doc.IsPublished, nil
}

func (db *DB) IncrementVideoViews(ctx context.Context, id string) (err error) {
	defer observe("increment_video_views", time.Now(), &err)

	oid, err := objectID("video", id)
	if err != nil {
		return err
	}
	res, err := db.col(colVideos).UpdateByID(ctx, oid, bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}})
	if err != nil {
		return fmt.Errorf("mongo: incrementing views of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("video", id)
	}
	return nil
}

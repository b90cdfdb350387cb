package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

func (db *DB) CreateComment(ctx context.Context, c *model.Comment) (err error) {
	defer observe("create_comment", time.Now(), &err)

	vid, err := objectID("video", c.VideoID)
	if err != nil {
		return err
	}
	owner, err := objectID("user", c.Owner.ID)
	if err != nil {
		return err
	}
	ok, err := db.exists(ctx, colVideos, vid)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("video", c.VideoID)
	}

	doc := commentDoc{
		ID:        primitive.NewObjectID(),
		Content:   c.Content,
		Video:     vid,
		Owner:     owner,
		CreatedAt: now(),
	}
	doc.UpdatedAt = doc.CreatedAt
	if _, err = db.col(colComments).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating comment: %w", err)
	}
	c.ID = doc.ID.Hex()
	c.CreatedAt, c.UpdatedAt = doc.CreatedAt, doc.UpdatedAt
	return nil
}

func (db *DB) GetCommentByID(ctx context.Context, id string) (_ *model.Comment, err error) {
	defer observe("get_comment", time.Now(), &err)

	oid, err := objectID("comment", id)
	if err != nil {
		return nil, err
	}
	pipeline := append(mongodrv.Pipeline{{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}}}, ownerLookup()...)

	var view commentView
	found, err := db.aggregateOne(ctx, colComments, pipeline, &view)
	if err != nil {
		return nil, fmt.Errorf("mongo: getting comment %s: %w", id, err)
	}
	if !found {
		return nil, apperror.NotFound("comment", id)
	}
	c := view.toModel()
	return &c, nil
}

func (db *DB) ListCommentsByVideo(ctx context.Context, videoID string, opts repository.ListOptions) (_ []model.Comment, _ int64, err error) {
	defer observe("list_comments", time.Now(), &err)
	opts = opts.Normalized()

	vid, err := objectID("video", videoID)
	if err != nil {
		return []model.Comment{}, 0, nil
	}

	var res facetResult[commentView]
	if _, err = db.aggregateOne(ctx, colComments, pagedPipeline(bson.D{{Key: "video", Value: vid}}, opts), &res); err != nil {
		return nil, 0, fmt.Errorf("mongo: listing comments: %w", err)
	}
	comments := make([]model.Comment, 0, len(res.Items))
	for i := range res.Items {
		comments = append(comments, res.Items[i].toModel())
	}
	return comments, res.total(), nil
}

func (db *DB) UpdateComment(ctx context.Context, c *model.Comment) (err error) {
	defer observe("update_comment", time.Now(), &err)

	oid, err := objectID("comment", c.ID)
	if err != nil {
		return err
	}
	c.UpdatedAt = now()
	res, err := db.col(colComments).UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: c.Content},
		{Key: "updatedAt", Value: c.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("mongo: updating comment %s: %w", c.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("comment", c.ID)
	}
	return nil
}

func (db *DB) DeleteComment(ctx context.Context, id string) (err error) {
	defer observe("delete_comment", time.Now(), &err)

	oid, err := objectID("comment", id)
	if err != nil {
		return err
	}
	res, err := db.col(colComments).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("mongo: deleting comment %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("comment", id)
	}
	if _, err = db.col(colLikes).DeleteMany(ctx, bson.D{{Key: "comment", Value: oid}}); err != nil {
		return fmt.Errorf("mongo: deleting likes of comment %s: %w", id, err)
	}
	return nil
}

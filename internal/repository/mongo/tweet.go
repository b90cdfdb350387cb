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

func (db *DB) CreateTweet(ctx context.Context, t *model.Tweet) (err error) {
	defer observe("create_tweet", time.Now(), &err)

	owner, err := objectID("user", t.Owner.ID)
	if err != nil {
		return err
	}
	doc := tweetDoc{ID: primitive.NewObjectID(), Content: t.Content, Owner: owner, CreatedAt: now()}
	doc.UpdatedAt = doc.CreatedAt
	if _, err = db.col(colTweets).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating tweet: %w", err)
	}
	t.ID = doc.ID.Hex()
	t.CreatedAt, t.UpdatedAt = doc.CreatedAt, doc.UpdatedAt
	return nil
}

func (db *DB) GetTweetByID(ctx context.Context, id string) (_ *model.Tweet, err error) {
	defer observe("get_tweet", time.Now(), &err)

	oid, err := objectID("tweet", id)
	if err != nil {
		return nil, err
	}
	pipeline := append(mongodrv.Pipeline{{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}}}, ownerLookup()...)

	var view tweetView
	found, err := db.aggregateOne(ctx, colTweets, pipeline, &view)
	if err != nil {
		return nil, fmt.Errorf("mongo: getting tweet %s: %w", id, err)
	}
	if !found {
		return nil, apperror.NotFound("tweet", id)
	}
	t := view.toModel()
	return &t, nil
}

func (db *DB) ListTweetsByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) (_ []model.Tweet, _ int64, err error) {
	defer observe("list_tweets", time.Now(), &err)
	opts = opts.Normalized()

	owner, err := objectID("user", ownerID)
	if err != nil {
		return []model.Tweet{}, 0, nil
	}

	var res facetResult[tweetView]
	if _, err = db.aggregateOne(ctx, colTweets, pagedPipeline(bson.D{{Key: "owner", Value: owner}}, opts), &res); err != nil {
		return nil, 0, fmt.Errorf("mongo: listing tweets: %w", err)
	}
	tweets := make([]model.Tweet, 0, len(res.Items))
	for i := range res.Items {
		tweets = append(tweets, res.Items[i].toModel())
	}
	return tweets, res.total(), nil
}

func (db *DB) UpdateTweet(ctx context.Context, t *model.Tweet) (err error) {
	defer observe("update_tweet", time.Now(), &err)

	oid, err := objectID("tweet", t.ID)
	if err != nil {
		return err
	}
	t.UpdatedAt = now()
	res, err := db.col(colTweets).UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: t.Content},
		{Key: "updatedAt", Value: t.UpdatedAt},
	}}})
	if err != nil {
		return fmt.Errorf("mongo: updating tweet %s: %w", t.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("tweet", t.ID)
	}
	return nil
}

func (db *DB) DeleteTweet(ctx context.Context, id string) (err error) {
	defer observe("delete_tweet", time.Now(), &err)

	oid, err := objectID("tweet", id)
	if err != nil {
		return err
	}
	res, err := db.col(colTweets).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("mongo: deleting tweet %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("tweet", id)
	}
	if _, err = db.col(colLikes).DeleteMany(ctx, bson.D{{Key: "tweet", Value: oid}}); err != nil {
		return fmt.Errorf("mongo: deleting likes of tweet %s: %w", id, err)
	}
	return nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

// maxToggleAttempts bounds the delete-or-insert retries of toggle.
const maxToggleAttempts = 5

// likeTargets maps a like kind onto the like document field and the
// collection holding the target.
var likeTargets = map[model.LikeKind]struct{ field, collection string }{
	model.LikeVideo:   {"video", colVideos},
	model.LikeComment: {"comment", colComments},
	model.LikeTweet:   {"tweet", colTweets},
}

func (db *DB) ToggleLike(ctx context.Context, l *model.Like) (_ bool, err error) {
	defer observe("toggle_like", time.Now(), &err)

	target, ok := likeTargets[l.Target.Kind]
	if !ok {
		return false, apperror.BadRequest(fmt.Sprintf("unknown like kind %q", l.Target.Kind))
	}
	kind := string(l.Target.Kind)
	tid, err := objectID(kind, l.Target.ID)
	if err != nil {
		return false, err
	}
	uid, err := objectID("user", l.LikedBy)
	if err != nil {
		return false, err
	}
	found, err := db.exists(ctx, target.collection, tid)
	if err != nil {
		return false, err
	}
	if !found {
		return false, apperror.NotFound(kind, l.Target.ID)
	}

	filter := bson.D{{Key: "likedBy", Value: uid}, {Key: target.field, Value: tid}}
	doc := likeDoc{ID: primitive.NewObjectID(), LikedBy: uid, CreatedAt: now()}
	switch l.Target.Kind {
	case model.LikeVideo:
		doc.Video = &tid
	case model.LikeComment:
		doc.Comment = &tid
	case model.LikeTweet:
		doc.Tweet = &tid
	}

	liked, err := db.toggle(ctx, colLikes, filter, &doc)
	if err != nil {
		return false, fmt.Errorf("mongo: toggling like on %s: %w", l.Target, err)
	}
	if liked {
		*l = doc.toModel()
	}
	return liked, nil
}

// toggle deletes the document matching filter, or inserts doc when there is
// none. It reports whether doc is now stored. An insert that loses the race
// to a concurrent first toggle hits the unique index; the attempt then
// starts over and deletes the winner's document, so N toggles leave N mod 2
// documents.
func (db *DB) toggle(ctx context.Context, collection string, filter bson.D, doc any) (bool, error) {
	col := db.col(collection)
	for attempt := 0; ; attempt++ {
		err := col.FindOneAndDelete(ctx, filter).Err()
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, mongodrv.ErrNoDocuments) {
			return false, err
		}

		_, err = col.InsertOne(ctx, doc)
		if err == nil {
			return true, nil
		}
		if !mongodrv.IsDuplicateKeyError(err) || attempt == maxToggleAttempts-1 {
			return false, err
		}
	}
}

func (db *DB) ListLikedVideos(ctx context.Context, userID string) (_ []model.VideoSummary, err error) {
	defer observe("list_liked_videos", time.Now(), &err)

	uid, err := objectID("user", userID)
	if err != nil {
		return []model.VideoSummary{}, nil
	}
	match := bson.D{
		{Key: "likedBy", Value: uid},
		{Key: "video", Value: bson.D{{Key: "$exists", Value: true}}},
	}
	project := bson.D{{Key: "title", Value: 1}, {Key: "thumbnail", Value: 1}}

	var docs []videoSummaryDoc
	if err = db.aggregateAll(ctx, colLikes, joinedListPipeline(match, "video", colVideos, project), &docs); err != nil {
		return nil, fmt.Errorf("mongo: listing liked videos: %w", err)
	}
	out := make([]model.VideoSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

package mongo

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/videotube/internal/repository"
)

// The builders below are pure so the pipeline shapes can be tested without
// a server.

var sortFields = map[string]string{
	repository.SortCreatedAt: "createdAt",
	repository.SortUpdatedAt: "updatedAt",
	repository.SortViews:     "views",
	repository.SortDuration:  "duration",
	repository.SortTitle:     "title",
}

// sortStage sorts on the requested field with an _id tiebreak. Unknown keys
// fall back to createdAt.
func sortStage(opts repository.ListOptions) bson.D {
	field, ok := sortFields[opts.SortBy]
	if !ok {
		field = "createdAt"
	}
	dir := 1
	if opts.Desc {
		dir = -1
	}
	return bson.D{{Key: "$sort", Value: bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}}}
}

// ownerLookup replaces the owner ObjectID with the owner summary. Documents
// whose owner no longer exists are dropped by the $unwind.
func ownerLookup() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: colUsers},
			{Key: "localField", Value: "owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "username", Value: 1},
					{Key: "fullName", Value: 1},
					{Key: "avatar", Value: 1},
				}}},
			}},
		}}},
		{{Key: "$unwind", Value: "$owner"}},
	}
}

// pagedPipeline runs match, then splits into a page of items (with owners
// joined) and a total count in one $facet.
func pagedPipeline(match bson.D, opts repository.ListOptions) mongodrv.Pipeline {
	items := bson.A{
		sortStage(opts),
		bson.D{{Key: "$skip", Value: int64(opts.Offset)}},
		bson.D{{Key: "$limit", Value: int64(opts.Limit)}},
	}
	for _, stage := range ownerLookup() {
		items = append(items, stage)
	}
	return mongodrv.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.D{
			{Key: "items", Value: items},
			{Key: "total", Value: bson.A{bson.D{{Key: "$count", Value: "n"}}}},
		}}},
	}
}

// facetResult decodes the output of pagedPipeline.
type facetResult[T any] struct {
	Items []T `bson:"items"`
	Total []struct {
		N int64 `bson:"n"`
	} `bson:"total"`
}

func (r facetResult[T]) total() int64 {
	if len(r.Total) == 0 {
		return 0
	}
	return r.Total[0].N
}

// videoMatch builds the $match document for ListVideos. viewer may be the
// zero ObjectID, in which case only published videos match.
func videoMatch(owner, viewer primitive.ObjectID, query string) bson.D {
	match := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "isPublished", Value: true}},
		bson.D{{Key: "owner", Value: viewer}},
	}}}
	if !owner.IsZero() {
		match = append(match, bson.E{Key: "owner", Value: owner})
	}
	if q := strings.TrimSpace(query); q != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		match = append(match, bson.E{Key: "$and", Value: bson.A{
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "title", Value: re}},
				bson.D{{Key: "description", Value: re}},
			}}},
		}})
	}
	return match
}

// publishToggleUpdate negates isPublished in place.
func publishToggleUpdate(now time.Time) mongodrv.Pipeline {
	return mongodrv.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "isPublished", Value: bson.D{{Key: "$not", Value: bson.A{"$isPublished"}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
}

// watchHistoryUpdate removes videoID from the history and appends it, so a
// rewatched video moves to the end.
func watchHistoryUpdate(videoID primitive.ObjectID) mongodrv.Pipeline {
	return mongodrv.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "watchHistory", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$watchHistory", bson.A{}}}}},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", videoID}}}},
				}}},
				bson.A{videoID},
			}}}},
		}}},
	}
}

// channelProfilePipeline counts subscribers and subscriptions of the channel
// named username and checks whether viewer is one of the subscribers.
func channelProfilePipeline(username string, viewer primitive.ObjectID) mongodrv.Pipeline {
	subs := func(field string) bson.D {
		return bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: colSubscriptions},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: field},
			{Key: "as", Value: field + "Docs"},
		}}}
	}
	return mongodrv.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "username", Value: username}}}},
		subs("channel"),
		subs("subscriber"),
		{{Key: "$project", Value: bson.D{
			{Key: "fullName", Value: 1},
			{Key: "username", Value: 1},
			{Key: "email", Value: 1},
			{Key: "avatar", Value: 1},
			{Key: "coverImage", Value: 1},
			{Key: "createdAt", Value: 1},
			{Key: "subscribersCount", Value: bson.D{{Key: "$size", Value: "$channelDocs"}}},
			{Key: "channelsSubscribedToCount", Value: bson.D{{Key: "$size", Value: "$subscriberDocs"}}},
			{Key: "isSubscribed", Value: bson.D{{Key: "$in", Value: bson.A{viewer, "$channelDocs.subscriber"}}}},
		}}},
	}
}

// watchHistoryPipeline joins the user's history onto the videos and their
// owners. The joined array comes back in arbitrary order; the caller
// restores it from watchHistory.
func watchHistoryPipeline(userID primitive.ObjectID) mongodrv.Pipeline {
	return mongodrv.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: userID}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: colVideos},
			{Key: "localField", Value: "watchHistory"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "history"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: colUsers},
					{Key: "localField", Value: "owner"},
					{Key: "foreignField", Value: "_id"},
					{Key: "as", Value: "owner"},
					{Key: "pipeline", Value: bson.A{
						bson.D{{Key: "$project", Value: bson.D{
							{Key: "fullName", Value: 1},
							{Key: "username", Value: 1},
							{Key: "email", Value: 1},
						}}},
					}},
				}}},
				bson.D{{Key: "$unwind", Value: "$owner"}},
			}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "watchHistory", Value: 1},
			{Key: "history", Value: 1},
		}}},
	}
}

// playlistPipeline joins owner and video summaries onto the playlists that
// match. videoIds keeps the stored order.
func playlistPipeline(match bson.D, newestFirst bool) mongodrv.Pipeline {
	p := mongodrv.Pipeline{{{Key: "$match", Value: match}}}
	if newestFirst {
		p = append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}})
	}
	p = append(p, ownerLookup()...)
	p = append(p,
		bson.D{{Key: "$set", Value: bson.D{{Key: "videoIds", Value: "$videos"}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: colVideos},
			{Key: "localField", Value: "videoIds"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "videos"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{{Key: "title", Value: 1}, {Key: "thumbnail", Value: 1}}}},
			}},
		}}},
	)
	return p
}

// joinedListPipeline follows a like or subscription reference into another
// collection and returns the referenced documents, oldest reference first.
func joinedListPipeline(match bson.D, localField, from string, project bson.D) mongodrv.Pipeline {
	return mongodrv.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: localField},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "target"},
			{Key: "pipeline", Value: bson.A{bson.D{{Key: "$project", Value: project}}}},
		}}},
		{{Key: "$unwind", Value: "$target"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$target"}}}},
	}
}

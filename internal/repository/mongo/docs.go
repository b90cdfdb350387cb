package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/videotube/internal/model"
)

// Collection names.
const (
	colUsers         = "users"
	colVideos        = "videos"
	colComments      = "comments"
	colTweets        = "tweets"
	colLikes         = "likes"
	colPlaylists     = "playlists"
	colSubscriptions = "subscriptions"
)

type userDoc struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Username     string               `bson:"username"`
	Email        string               `bson:"email"`
	FullName     string               `bson:"fullName"`
	Avatar       string               `bson:"avatar"`
	CoverImage   string               `bson:"coverImage"`
	Password     string               `bson:"password"`
	RefreshToken string               `bson:"refreshToken"`
	WatchHistory []primitive.ObjectID `bson:"watchHistory"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		PasswordHash: d.Password,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// ownerDoc is the projection produced by ownerLookup.
type ownerDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	FullName string             `bson:"fullName"`
	Avatar   string             `bson:"avatar"`
}

func (d ownerDoc) toModel() model.OwnerSummary {
	return model.OwnerSummary{ID: d.ID.Hex(), Username: d.Username, FullName: d.FullName, Avatar: d.Avatar}
}

// videoDoc is a stored video. Owner is an ObjectID on disk and the joined
// ownerDoc in aggregation output, so reads decode into videoView instead.
type videoDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	VideoFile   string             `bson:"videoFile"`
	Thumbnail   string             `bson:"thumbnail"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Duration    float64            `bson:"duration"`
	Views       int64              `bson:"views"`
	IsPublished bool               `bson:"isPublished"`
	Owner       primitive.ObjectID `bson:"owner"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type videoView struct {
	ID          primitive.ObjectID `bson:"_id"`
	VideoFile   string             `bson:"videoFile"`
	Thumbnail   string             `bson:"thumbnail"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Duration    float64            `bson:"duration"`
	Views       int64              `bson:"views"`
	IsPublished bool               `bson:"isPublished"`
	Owner       ownerDoc           `bson:"owner"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *videoView) toModel() model.Video {
	return model.Video{
		ID:          d.ID.Hex(),
		VideoFile:   d.VideoFile,
		Thumbnail:   d.Thumbnail,
		Title:       d.Title,
		Description: d.Description,
		Duration:    d.Duration,
		Views:       d.Views,
		IsPublished: d.IsPublished,
		Owner:       d.Owner.toModel(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type videoSummaryDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Thumbnail string             `bson:"thumbnail"`
}

func (d videoSummaryDoc) toModel() model.VideoSummary {
	return model.VideoSummary{ID: d.ID.Hex(), Title: d.Title, Thumbnail: d.Thumbnail}
}

type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	Video     primitive.ObjectID `bson:"video"`
	Owner     primitive.ObjectID `bson:"owner"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type commentView struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	Video     primitive.ObjectID `bson:"video"`
	Owner     ownerDoc           `bson:"owner"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *commentView) toModel() model.Comment {
	return model.Comment{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		VideoID:   d.Video.Hex(),
		Owner:     d.Owner.toModel(),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type tweetDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	Owner     primitive.ObjectID `bson:"owner"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type tweetView struct {
	ID        primitive.ObjectID `bson:"_id"`
	Content   string             `bson:"content"`
	Owner     ownerDoc           `bson:"owner"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *tweetView) toModel() model.Tweet {
	return model.Tweet{
		ID:        d.ID.Hex(),
		Content:   d.Content,
		Owner:     d.Owner.toModel(),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// likeDoc carries exactly one of Video, Comment or Tweet. A stored document
// is a like; unliking deletes it.
type likeDoc struct {
	ID        primitive.ObjectID  `bson:"_id"`
	Video     *primitive.ObjectID `bson:"video,omitempty"`
	Comment   *primitive.ObjectID `bson:"comment,omitempty"`
	Tweet     *primitive.ObjectID `bson:"tweet,omitempty"`
	LikedBy   primitive.ObjectID  `bson:"likedBy"`
	CreatedAt time.Time           `bson:"createdAt"`
}

func (d *likeDoc) toModel() model.Like {
	l := model.Like{ID: d.ID.Hex(), LikedBy: d.LikedBy.Hex(), CreatedAt: d.CreatedAt.UTC()}
	switch {
	case d.Video != nil:
		l.Target = model.LikeTarget{Kind: model.LikeVideo, ID: d.Video.Hex()}
	case d.Comment != nil:
		l.Target = model.LikeTarget{Kind: model.LikeComment, ID: d.Comment.Hex()}
	case d.Tweet != nil:
		l.Target = model.LikeTarget{Kind: model.LikeTweet, ID: d.Tweet.Hex()}
	}
	return l
}

type playlistDoc struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Owner       primitive.ObjectID   `bson:"owner"`
	Videos      []primitive.ObjectID `bson:"videos"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

// playlistView is a playlist after ownerLookup and the video lookup.
// VideoIDs keeps the stored order; Videos arrives in arbitrary order.
type playlistView struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Owner       ownerDoc             `bson:"owner"`
	VideoIDs    []primitive.ObjectID `bson:"videoIds"`
	Videos      []videoSummaryDoc    `bson:"videos"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d *playlistView) toModel() model.Playlist {
	byID := make(map[primitive.ObjectID]model.VideoSummary, len(d.Videos))
	for _, v := range d.Videos {
		byID[v.ID] = v.toModel()
	}
	return model.Playlist{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Owner:       d.Owner.toModel(),
		Videos:      orderByIDs(d.VideoIDs, byID),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type subscriptionDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Subscriber primitive.ObjectID `bson:"subscriber"`
	Channel    primitive.ObjectID `bson:"channel"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type channelSummaryDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Username string             `bson:"username"`
	FullName string             `bson:"fullName"`
	Email    string             `bson:"email"`
	Avatar   string             `bson:"avatar"`
}

type channelProfileDoc struct {
	ID                        primitive.ObjectID `bson:"_id"`
	FullName                  string             `bson:"fullName"`
	Username                  string             `bson:"username"`
	Email                     string             `bson:"email"`
	Avatar                    string             `bson:"avatar"`
	CoverImage                string             `bson:"coverImage"`
	SubscribersCount          int64              `bson:"subscribersCount"`
	ChannelsSubscribedToCount int64              `bson:"channelsSubscribedToCount"`
	IsSubscribed              bool               `bson:"isSubscribed"`
	CreatedAt                 time.Time          `bson:"createdAt"`
}

type watchedVideoDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	VideoFile   string             `bson:"videoFile"`
	Thumbnail   string             `bson:"thumbnail"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Duration    float64            `bson:"duration"`
	Views       int64              `bson:"views"`
	IsPublished bool               `bson:"isPublished"`
	Owner       struct {
		FullName string `bson:"fullName"`
		Username string `bson:"username"`
		Email    string `bson:"email"`
	} `bson:"owner"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d watchedVideoDoc) toModel() model.WatchedVideo {
	return model.WatchedVideo{
		ID:          d.ID.Hex(),
		VideoFile:   d.VideoFile,
		Thumbnail:   d.Thumbnail,
		Title:       d.Title,
		Description: d.Description,
		Duration:    d.Duration,
		Views:       d.Views,
		IsPublished: d.IsPublished,
		Owner: model.HistoryOwner{
			FullName: d.Owner.FullName,
			Username: d.Owner.Username,
			Email:    d.Owner.Email,
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// orderByIDs lays the values of byID out in the order of ids, skipping ids
// with no value (deleted documents). The result is never nil.
func orderByIDs[T any](ids []primitive.ObjectID, byID map[primitive.ObjectID]T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

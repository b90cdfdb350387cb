// Package repository declares the persistence contracts the services depend
// on. Two backends implement every interface: sqlite (embedded, the default)
// and mongo.
//
// Shared conventions:
//   - Missing rows are reported as *apperror.AppError wrapping ErrNotFound.
//   - Unique violations are reported as wrapping ErrConflict.
//   - Create methods fill in ID and timestamps on the value passed in.
//   - List methods return an empty (non-nil) slice when nothing matches.
package repository

import (
	"context"

	"github.com/sakif/videotube/internal/model"
)

// Sort keys accepted by list methods. Backends map them onto columns or
// document fields; anything else falls back to SortCreatedAt.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortViews     = "views"
	SortDuration  = "duration"
	SortTitle     = "title"
)

// VideoSortKeys are the keys ListVideos understands.
var VideoSortKeys = []string{SortCreatedAt, SortUpdatedAt, SortViews, SortDuration, SortTitle}

type ListOptions struct {
	Limit  int
	Offset int
	SortBy string
	Desc   bool
}

// VideoFilter narrows ListVideos.
type VideoFilter struct {
	OwnerID string // only this owner's videos, when set
	Query   string // case-insensitive substring of title or description
	// ViewerID sees their own unpublished videos; everyone else's are hidden.
	ViewerID string
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// FindUserByLogin matches username or email, whichever are non-empty.
	FindUserByLogin(ctx context.Context, username, email string) (*model.User, error)
	// UpdateUser writes profile fields, avatar, cover image and password hash.
	UpdateUser(ctx context.Context, u *model.User) error
	// SetRefreshToken overwrites the refresh token slot; "" clears it.
	SetRefreshToken(ctx context.Context, userID, token string) error
	// SwapRefreshToken replaces the stored token with next only if it
	// currently equals current. It reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, userID, current, next string) (bool, error)
	// AddToWatchHistory moves videoID to the end of the user's history.
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
}

type VideoRepository interface {
	CreateVideo(ctx context.Context, v *model.Video) error
	// GetVideoByID returns the video with its owner summary populated.
	GetVideoByID(ctx context.Context, id string) (*model.Video, error)
	ListVideos(ctx context.Context, filter VideoFilter, opts ListOptions) ([]model.Video, int64, error)
	// UpdateVideo writes title, description and thumbnail.
	UpdateVideo(ctx context.Context, v *model.Video) error
	// DeleteVideo removes the video together with its comments, every like
	// on it or its comments, playlist entries and watch-history entries.
	DeleteVideo(ctx context.Context, id string) error
	// ToggleVideoPublished flips the publish flag and returns the new value.
	ToggleVideoPublished(ctx context.Context, id string) (bool, error)
	IncrementVideoViews(ctx context.Context, id string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, c *model.Comment) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	ListCommentsByVideo(ctx context.Context, videoID string, opts ListOptions) ([]model.Comment, int64, error)
	UpdateComment(ctx context.Context, c *model.Comment) error
	// DeleteComment also removes likes on the comment.
	DeleteComment(ctx context.Context, id string) error
}

type TweetRepository interface {
	CreateTweet(ctx context.Context, t *model.Tweet) error
	GetTweetByID(ctx context.Context, id string) (*model.Tweet, error)
	ListTweetsByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.Tweet, int64, error)
	UpdateTweet(ctx context.Context, t *model.Tweet) error
	// DeleteTweet also removes likes on the tweet.
	DeleteTweet(ctx context.Context, id string) error
}

type LikeRepository interface {
	// ToggleLike removes the like for (l.LikedBy, l.Target) if it exists and
	// creates it otherwise, in one store operation. It reports whether the
	// target is liked afterwards; when it is, l carries the stored row.
	ToggleLike(ctx context.Context, l *model.Like) (bool, error)
	// ListLikedVideos returns the videos a user likes, oldest like first.
	ListLikedVideos(ctx context.Context, userID string) ([]model.VideoSummary, error)
}

type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, p *model.Playlist) error
	// GetPlaylistByID returns the playlist with owner and videos populated,
	// videos in stored order.
	GetPlaylistByID(ctx context.Context, id string) (*model.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]model.Playlist, error)
	// UpdatePlaylist writes name and description.
	UpdatePlaylist(ctx context.Context, p *model.Playlist) error
	DeletePlaylist(ctx context.Context, id string) error
	// AddVideoToPlaylist appends videoID. It reports false when the video
	// is already in the playlist.
	AddVideoToPlaylist(ctx context.Context, playlistID, videoID string) (bool, error)
	RemoveVideoFromPlaylist(ctx context.Context, playlistID, videoID string) error
}

type SubscriptionRepository interface {
	// ToggleSubscription behaves like ToggleLike for (subscriber, channel).
	ToggleSubscription(ctx context.Context, s *model.Subscription) (bool, error)
	ListSubscribers(ctx context.Context, channelID string) ([]model.ChannelSummary, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]model.ChannelSummary, error)
}

// ReadModelRepository builds the derived views that join several
// collections in one store round trip.
type ReadModelRepository interface {
	// ChannelProfile looks the channel up by (lower-cased) username.
	// IsSubscribed reports whether viewerID subscribes to it.
	ChannelProfile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error)
	// WatchHistory returns the user's history in stored order, skipping
	// videos that no longer exist.
	WatchHistory(ctx context.Context, userID string) ([]model.WatchedVideo, error)
}

// Store is everything a backend provides.
type Store interface {
	UserRepository
	VideoRepository
	CommentRepository
	TweetRepository
	LikeRepository
	PlaylistRepository
	SubscriptionRepository
	ReadModelRepository

	Ping(ctx context.Context) error
	Close() error
}

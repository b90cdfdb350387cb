package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/metrics"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
	"github.com/sakif/videotube/internal/storage"
)

// VideoService publishes, lists and manages videos and their hosted files.
type VideoService struct {
	videos repository.VideoRepository
	users  repository.UserRepository
	assets storage.AssetStore
	logger *slog.Logger
}

func NewVideoService(
	videos repository.VideoRepository,
	users repository.UserRepository,
	assets storage.AssetStore,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{videos: videos, users: users, assets: assets, logger: logger}
}

// VideoQuery is a video listing request.
type VideoQuery struct {
	PageParams
	Query  string
	UserID string // only this owner's videos, when set
}

type PublishVideoInput struct {
	Title       string  `form:"title" validate:"max=200"`
	Description string  `form:"description" validate:"max=5000"`
	Duration    float64 `form:"duration" validate:"gte=0"`
	VideoFile   *storage.Upload
	Thumbnail   *storage.Upload
}

type UpdateVideoInput struct {
	Title       *string `form:"title" validate:"omitnil,notblank,max=200"`
	Description *string `form:"description" validate:"omitnil,notblank,max=5000"`
	Thumbnail   *storage.Upload
}

const videoForbidden = "You are not authorized to do this"

func (s *VideoService) List(ctx context.Context, viewerID string, q VideoQuery) (model.Page[model.Video], error) {
	opts, page := q.options(repository.VideoSortKeys)
	filter := repository.VideoFilter{
		OwnerID:  strings.TrimSpace(q.UserID),
		Query:    q.Query,
		ViewerID: viewerID,
	}
	videos, total, err := s.videos.ListVideos(ctx, filter, opts)
	if err != nil {
		return model.Page[model.Video]{}, fmt.Errorf("service/video: listing: %w", err)
	}
	return model.NewPage(videos, total, page, opts.Limit), nil
}

// Publish uploads the video file and thumbnail, then stores the record. On
// any failure the files uploaded so far are removed again.
func (s *VideoService) Publish(ctx context.Context, owner *model.User, in PublishVideoInput) (*model.Video, error) {
	if blank(in.Title) || blank(in.Description) {
		return nil, apperror.BadRequest("All fields are required")
	}
	if err := validate(in, ""); err != nil {
		return nil, err
	}
	if in.VideoFile == nil || in.Thumbnail == nil {
		return nil, apperror.BadRequest("Video or thumbnail not found")
	}

	videoAsset, err := s.assets.Upload(ctx, storage.FolderVideos, *in.VideoFile)
	if err != nil {
		s.logger.Error("video upload failed", slog.String("error", err.Error()))
		return nil, apperror.Internal("Error in uploading")
	}
	thumbAsset, err := s.assets.Upload(ctx, storage.FolderThumbnails, *in.Thumbnail)
	if err != nil {
		s.logger.Error("thumbnail upload failed", slog.String("error", err.Error()))
		removeAsset(ctx, s.assets, s.logger, videoAsset.URL)
		return nil, apperror.Internal("Error in uploading")
	}

	v := &model.Video{
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbAsset.URL,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Duration:    in.Duration,
		IsPublished: true,
		Owner:       owner.Summary(),
	}
	if err := s.videos.CreateVideo(ctx, v); err != nil {
		removeAsset(ctx, s.assets, s.logger, videoAsset.URL)
		removeAsset(ctx, s.assets, s.logger, thumbAsset.URL)
		return nil, fmt.Errorf("service/video: creating: %w", err)
	}
	s.logger.Info("video published", slog.String("videoID", v.ID), slog.String("owner", owner.ID))
	return v, nil
}

// load returns the video, hiding unpublished videos from everyone but the
// owner.
func (s *VideoService) load(ctx context.Context, viewerID, videoID string) (*model.Video, error) {
	return visibleVideo(ctx, s.videos, viewerID, videoID)
}

// Watch returns the video and records the view: the view counter goes up
// and the video moves to the end of the viewer's watch history.
func (s *VideoService) Watch(ctx context.Context, viewerID, videoID string) (*model.Video, error) {
	v, err := s.load(ctx, viewerID, videoID)
	if err != nil {
		return nil, err
	}
	if err := s.videos.IncrementVideoViews(ctx, v.ID); err != nil {
		return nil, fmt.Errorf("service/video: counting view: %w", err)
	}
	v.Views++
	if err := s.users.AddToWatchHistory(ctx, viewerID, v.ID); err != nil {
		return nil, fmt.Errorf("service/video: updating watch history: %w", err)
	}
	return v, nil
}

func (s *VideoService) Update(ctx context.Context, userID, videoID string, in UpdateVideoInput) (*model.Video, error) {
	if in.Title == nil && in.Description == nil && in.Thumbnail == nil {
		return nil, apperror.BadRequest("Nothing to update")
	}
	if err := validate(in, ""); err != nil {
		return nil, err
	}

	v, err := s.load(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(v.Owner, userID, videoForbidden); err != nil {
		return nil, err
	}

	if in.Title != nil {
		v.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		v.Description = strings.TrimSpace(*in.Description)
	}
	oldThumb := ""
	if in.Thumbnail != nil {
		asset, err := s.assets.Upload(ctx, storage.FolderThumbnails, *in.Thumbnail)
		if err != nil {
			s.logger.Error("thumbnail upload failed", slog.String("error", err.Error()))
			return nil, apperror.Internal("Error in uploading")
		}
		oldThumb, v.Thumbnail = v.Thumbnail, asset.URL
	}

	if err := s.videos.UpdateVideo(ctx, v); err != nil {
		if oldThumb != "" {
			removeAsset(ctx, s.assets, s.logger, v.Thumbnail)
		}
		return nil, fmt.Errorf("service/video: updating %s: %w", videoID, err)
	}
	removeAsset(ctx, s.assets, s.logger, oldThumb)
	return v, nil
}

// Delete removes the hosted files first and the record last. If either file
// cannot be removed the record stays, so the files are never orphaned
// without a record pointing at them.
func (s *VideoService) Delete(ctx context.Context, userID, videoID string) error {
	v, err := s.load(ctx, userID, videoID)
	if err != nil {
		return err
	}
	if err := requireOwner(v.Owner, userID, videoForbidden); err != nil {
		return err
	}

	if err := s.deleteAsset(ctx, v.VideoFile, "videoFile", "Error in deleting the video"); err != nil {
		return err
	}
	if err := s.deleteAsset(ctx, v.Thumbnail, "thumbnail", "Error in deleting the thumbnail"); err != nil {
		return err
	}

	if err := s.videos.DeleteVideo(ctx, v.ID); err != nil {
		return fmt.Errorf("service/video: deleting %s: %w", videoID, err)
	}
	s.logger.Info("video deleted", slog.String("videoID", v.ID))
	return nil
}

func (s *VideoService) deleteAsset(ctx context.Context, url, field, failMessage string) error {
	err := s.assets.Delete(ctx, url)
	if err == nil {
		return nil
	}
	s.logger.Error("asset delete failed", slog.String("url", url), slog.String("error", err.Error()))
	if errors.Is(err, storage.ErrNotManaged) {
		return apperror.Internal("Error in getting publicId of " + field)
	}
	return apperror.Internal(failMessage)
}

// TogglePublish flips the publish flag and returns the updated video.
func (s *VideoService) TogglePublish(ctx context.Context, userID, videoID string) (*model.Video, error) {
	v, err := s.load(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(v.Owner, userID, videoForbidden); err != nil {
		return nil, err
	}

	published, err := s.videos.ToggleVideoPublished(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("service/video: toggling publish of %s: %w", videoID, err)
	}
	metrics.RecordToggle("publish", published)
	v.IsPublished = published
	return v, nil
}

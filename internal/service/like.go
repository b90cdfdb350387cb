package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/metrics"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

type LikeService struct {
	likes  repository.LikeRepository
	videos repository.VideoRepository
	logger *slog.Logger
}

func NewLikeService(likes repository.LikeRepository, videos repository.VideoRepository, logger *slog.Logger) *LikeService {
	return &LikeService{likes: likes, videos: videos, logger: logger}
}

// Toggle likes target for userID, or unlikes it if already liked. The
// returned like is nil after an unlike. A missing target, or a video the
// user may not see, is NotFound.
func (s *LikeService) Toggle(ctx context.Context, userID string, target model.LikeTarget) (*model.Like, error) {
	if !target.Kind.Valid() {
		return nil, apperror.BadRequest(fmt.Sprintf("unknown like kind %q", target.Kind))
	}
	if target.Kind == model.LikeVideo {
		if _, err := visibleVideo(ctx, s.videos, userID, target.ID); err != nil {
			return nil, err
		}
	}
	l := &model.Like{LikedBy: userID, Target: target}
	liked, err := s.likes.ToggleLike(ctx, l)
	if err != nil {
		return nil, err
	}
	metrics.RecordToggle("like_"+string(target.Kind), liked)
	if !liked {
		return nil, nil
	}
	return l, nil
}

func (s *LikeService) LikedVideos(ctx context.Context, userID string) ([]model.VideoSummary, error) {
	videos, err := s.likes.ListLikedVideos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/like: listing liked videos: %w", err)
	}
	return videos, nil
}

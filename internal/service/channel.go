package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

// ChannelService serves the read models that join users, subscriptions and
// videos: channel profiles and watch history.
type ChannelService struct {
	reads  repository.ReadModelRepository
	logger *slog.Logger
}

func NewChannelService(reads repository.ReadModelRepository, logger *slog.Logger) *ChannelService {
	return &ChannelService{reads: reads, logger: logger}
}

func (s *ChannelService) Profile(ctx context.Context, username, viewerID string) (*model.ChannelProfile, error) {
	if blank(username) {
		return nil, apperror.BadRequest("Username is required")
	}
	return s.reads.ChannelProfile(ctx, username, viewerID)
}

func (s *ChannelService) WatchHistory(ctx context.Context, userID string) ([]model.WatchedVideo, error) {
	h, err := s.reads.WatchHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/channel: loading watch history: %w", err)
	}
	return h, nil
}

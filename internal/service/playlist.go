package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

type PlaylistService struct {
	playlists repository.PlaylistRepository
	videos    repository.VideoRepository
	logger    *slog.Logger
}

func NewPlaylistService(playlists repository.PlaylistRepository, videos repository.VideoRepository, logger *slog.Logger) *PlaylistService {
	return &PlaylistService{playlists: playlists, videos: videos, logger: logger}
}

type PlaylistInput struct {
	Name        string `json:"name" validate:"max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type UpdatePlaylistInput struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=100"`
	Description *string `json:"description" validate:"omitnil,max=1000"`
}

const playlistForbidden = "You are not authorized to do this"

func (s *PlaylistService) Create(ctx context.Context, owner *model.User, in PlaylistInput) (*model.Playlist, error) {
	if blank(in.Name) {
		return nil, apperror.ValidationFailed("name", "Name is required")
	}
	if err := validate(in, ""); err != nil {
		return nil, err
	}
	p := &model.Playlist{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Owner:       owner.Summary(),
	}
	if err := s.playlists.CreatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("service/playlist: creating: %w", err)
	}
	return p, nil
}

func (s *PlaylistService) Get(ctx context.Context, playlistID string) (*model.Playlist, error) {
	return s.playlists.GetPlaylistByID(ctx, playlistID)
}

func (s *PlaylistService) ListByUser(ctx context.Context, userID string) ([]model.Playlist, error) {
	out, err := s.playlists.ListPlaylistsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/playlist: listing: %w", err)
	}
	return out, nil
}

// owned loads the playlist and checks userID owns it.
func (s *PlaylistService) owned(ctx context.Context, userID, playlistID string) (*model.Playlist, error) {
	p, err := s.playlists.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p.Owner, userID, playlistForbidden); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PlaylistService) Update(ctx context.Context, userID, playlistID string, in UpdatePlaylistInput) (*model.Playlist, error) {
	if in.Name == nil && in.Description == nil {
		return nil, apperror.BadRequest("Name or description is required")
	}
	if err := validate(in, ""); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.playlists.UpdatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("service/playlist: updating %s: %w", playlistID, err)
	}
	return p, nil
}

func (s *PlaylistService) Delete(ctx context.Context, userID, playlistID string) error {
	if _, err := s.owned(ctx, userID, playlistID); err != nil {
		return err
	}
	if err := s.playlists.DeletePlaylist(ctx, playlistID); err != nil {
		return fmt.Errorf("service/playlist: deleting %s: %w", playlistID, err)
	}
	return nil
}

// AddVideo appends videoID and returns the updated playlist. Adding a video
// that is already there is a 400.
func (s *PlaylistService) AddVideo(ctx context.Context, userID, videoID, playlistID string) (*model.Playlist, error) {
	if _, err := s.owned(ctx, userID, playlistID); err != nil {
		return nil, err
	}
	if _, err := visibleVideo(ctx, s.videos, userID, videoID); err != nil {
		return nil, err
	}

	added, err := s.playlists.AddVideoToPlaylist(ctx, playlistID, videoID)
	if err != nil {
		return nil, fmt.Errorf("service/playlist: adding video: %w", err)
	}
	if !added {
		return nil, apperror.BadRequest("Video already there in playlist")
	}
	return s.playlists.GetPlaylistByID(ctx, playlistID)
}

func (s *PlaylistService) RemoveVideo(ctx context.Context, userID, videoID, playlistID string) (*model.Playlist, error) {
	p, err := s.owned(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	inList := slices.ContainsFunc(p.Videos, func(v model.VideoSummary) bool { return v.ID == videoID })
	if !inList {
		return nil, apperror.NotFoundMessage("Video not found in playlist")
	}

	if err := s.playlists.RemoveVideoFromPlaylist(ctx, playlistID, videoID); err != nil {
		return nil, fmt.Errorf("service/playlist: removing video: %w", err)
	}
	return s.playlists.GetPlaylistByID(ctx, playlistID)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

// MaxContentLength bounds comment and tweet bodies.
const MaxContentLength = 2000

type CommentService struct {
	comments repository.CommentRepository
	videos   repository.VideoRepository
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, videos repository.VideoRepository, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, videos: videos, logger: logger}
}

// checkContent trims content and enforces the shared body rules.
func checkContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "Content is required")
	}
	if len(content) > MaxContentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("content must be at most %d characters", MaxContentLength))
	}
	return content, nil
}

// List returns one page of a video's comments, newest first unless the
// caller asks otherwise.
func (s *CommentService) List(ctx context.Context, viewerID, videoID string, p PageParams) (model.Page[model.Comment], error) {
	if _, err := visibleVideo(ctx, s.videos, viewerID, videoID); err != nil {
		return model.Page[model.Comment]{}, err
	}
	opts, page := p.options(defaultSortKeys)
	comments, total, err := s.comments.ListCommentsByVideo(ctx, videoID, opts)
	if err != nil {
		return model.Page[model.Comment]{}, fmt.Errorf("service/comment: listing: %w", err)
	}
	return model.NewPage(comments, total, page, opts.Limit), nil
}

func (s *CommentService) Create(ctx context.Context, owner *model.User, videoID, content string) (*model.Comment, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := visibleVideo(ctx, s.videos, owner.ID, videoID); err != nil {
		return nil, err
	}

	c := &model.Comment{Content: content, VideoID: videoID, Owner: owner.Summary()}
	if err := s.comments.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("service/comment: creating: %w", err)
	}
	return c, nil
}

func (s *CommentService) Update(ctx context.Context, userID, commentID, content string) (*model.Comment, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}
	c, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(c.Owner, userID, "You are not authorized to update the comment"); err != nil {
		return nil, err
	}

	c.Content = content
	if err := s.comments.UpdateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("service/comment: updating %s: %w", commentID, err)
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, userID, commentID string) error {
	c, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if err := requireOwner(c.Owner, userID, "You are not authorized to delete the comment"); err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("service/comment: deleting %s: %w", commentID, err)
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

type TweetService struct {
	tweets repository.TweetRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewTweetService(tweets repository.TweetRepository, users repository.UserRepository, logger *slog.Logger) *TweetService {
	return &TweetService{tweets: tweets, users: users, logger: logger}
}

func (s *TweetService) Create(ctx context.Context, owner *model.User, content string) (*model.Tweet, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}
	t := &model.Tweet{Content: content, Owner: owner.Summary()}
	if err := s.tweets.CreateTweet(ctx, t); err != nil {
		return nil, fmt.Errorf("service/tweet: creating: %w", err)
	}
	return t, nil
}

// ListByUser returns one page of a user's tweets, newest first by default.
func (s *TweetService) ListByUser(ctx context.Context, userID string, p PageParams) (model.Page[model.Tweet], error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return model.Page[model.Tweet]{}, err
	}
	opts, page := p.options(defaultSortKeys)
	tweets, total, err := s.tweets.ListTweetsByOwner(ctx, userID, opts)
	if err != nil {
		return model.Page[model.Tweet]{}, fmt.Errorf("service/tweet: listing: %w", err)
	}
	return model.NewPage(tweets, total, page, opts.Limit), nil
}

func (s *TweetService) Update(ctx context.Context, userID, tweetID, content string) (*model.Tweet, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}
	t, err := s.tweets.GetTweetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if t.Owner.ID != userID {
		return nil, apperror.Forbidden("You are not authorized to update the tweet")
	}

	t.Content = content
	if err := s.tweets.UpdateTweet(ctx, t); err != nil {
		return nil, fmt.Errorf("service/tweet: updating %s: %w", tweetID, err)
	}
	return t, nil
}

func (s *TweetService) Delete(ctx context.Context, userID, tweetID string) error {
	t, err := s.tweets.GetTweetByID(ctx, tweetID)
	if err != nil {
		return err
	}
	if t.Owner.ID != userID {
		return apperror.Forbidden("You are not authorized to delete the tweet")
	}
	if err := s.tweets.DeleteTweet(ctx, tweetID); err != nil {
		return fmt.Errorf("service/tweet: deleting %s: %w", tweetID, err)
	}
	return nil
}

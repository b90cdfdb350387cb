package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/metrics"
	"github.com/sakif/videotube/internal/model"
	"github.com/sakif/videotube/internal/repository"
)

type SubscriptionService struct {
	subs   repository.SubscriptionRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewSubscriptionService(subs repository.SubscriptionRepository, users repository.UserRepository, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{subs: subs, users: users, logger: logger}
}

const channelNotFound = "Channel not found. Provide valid channel Id"

// Toggle subscribes subscriberID to channelID, or unsubscribes if already
// subscribed. The returned subscription is nil after an unsubscribe.
func (s *SubscriptionService) Toggle(ctx context.Context, subscriberID, channelID string) (*model.Subscription, error) {
	if subscriberID == channelID {
		return nil, apperror.BadRequest("You cannot subscribe to your own channel")
	}
	if err := s.requireUser(ctx, channelID, channelNotFound); err != nil {
		return nil, err
	}

	sub := &model.Subscription{SubscriberID: subscriberID, ChannelID: channelID}
	on, err := s.subs.ToggleSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}
	metrics.RecordToggle("subscription", on)
	if !on {
		return nil, nil
	}
	return sub, nil
}

func (s *SubscriptionService) Subscribers(ctx context.Context, channelID string) ([]model.ChannelSummary, error) {
	if err := s.requireUser(ctx, channelID, channelNotFound); err != nil {
		return nil, err
	}
	out, err := s.subs.ListSubscribers(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("service/subscription: listing subscribers: %w", err)
	}
	return out, nil
}

func (s *SubscriptionService) SubscribedChannels(ctx context.Context, subscriberID string) ([]model.ChannelSummary, error) {
	if err := s.requireUser(ctx, subscriberID, "Subscriber not found"); err != nil {
		return nil, err
	}
	out, err := s.subs.ListSubscribedChannels(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("service/subscription: listing subscribed channels: %w", err)
	}
	return out, nil
}

func (s *SubscriptionService) requireUser(ctx context.Context, id, notFound string) error {
	if _, err := s.users.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage(notFound)
		}
		return fmt.Errorf("service/subscription: loading user %s: %w", id, err)
	}
	return nil
}

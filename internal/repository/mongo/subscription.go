package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

var channelSummaryProjection = bson.D{
	{Key: "username", Value: 1},
	{Key: "fullName", Value: 1},
	{Key: "email", Value: 1},
	{Key: "avatar", Value: 1},
}

func (db *DB) ToggleSubscription(ctx context.Context, s *model.Subscription) (_ bool, err error) {
	defer observe("toggle_subscription", time.Now(), &err)

	notFound := apperror.NotFoundMessage("Channel not found. Provide valid channel Id")
	cid, err := objectID("channel", s.ChannelID)
	if err != nil {
		return false, notFound
	}
	sid, err := objectID("user", s.SubscriberID)
	if err != nil {
		return false, err
	}
	found, err := db.exists(ctx, colUsers, cid)
	if err != nil {
		return false, err
	}
	if !found {
		return false, notFound
	}

	filter := bson.D{{Key: "subscriber", Value: sid}, {Key: "channel", Value: cid}}
	doc := subscriptionDoc{ID: primitive.NewObjectID(), Subscriber: sid, Channel: cid, CreatedAt: now()}
	on, err := db.toggle(ctx, colSubscriptions, filter, &doc)
	if err != nil {
		return false, fmt.Errorf("mongo: toggling subscription: %w", err)
	}
	if on {
		s.ID = doc.ID.Hex()
		s.CreatedAt = doc.CreatedAt.UTC()
	}
	return on, nil
}

func (db *DB) ListSubscribers(ctx context.Context, channelID string) (_ []model.ChannelSummary, err error) {
	defer observe("list_subscribers", time.Now(), &err)
	return db.channelSummaries(ctx, channelID, "channel", "subscriber")
}

func (db *DB) ListSubscribedChannels(ctx context.Context, subscriberID string) (_ []model.ChannelSummary, err error) {
	defer observe("list_subscribed_channels", time.Now(), &err)
	return db.channelSummaries(ctx, subscriberID, "subscriber", "channel")
}

// channelSummaries lists the users on the other side of id's
// subscriptions: matchField selects id's side, joinField the other.
func (db *DB) channelSummaries(ctx context.Context, id, matchField, joinField string) ([]model.ChannelSummary, error) {
	oid, err := objectID("user", id)
	if err != nil {
		return []model.ChannelSummary{}, nil
	}
	match := bson.D{{Key: matchField, Value: oid}}

	var docs []channelSummaryDoc
	if err := db.aggregateAll(ctx, colSubscriptions,
		joinedListPipeline(match, joinField, colUsers, channelSummaryProjection), &docs); err != nil {
		return nil, fmt.Errorf("mongo: listing channels: %w", err)
	}
	out := make([]model.ChannelSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.ChannelSummary{
			ID: d.ID.Hex(), Username: d.Username, FullName: d.FullName, Email: d.Email, Avatar: d.Avatar,
		})
	}
	return out, nil
}

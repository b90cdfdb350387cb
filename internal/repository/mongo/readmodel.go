package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

func (db *DB) ChannelProfile(ctx context.Context, username, viewerID string) (_ *model.ChannelProfile, err error) {
	defer observe("channel_profile", time.Now(), &err)

	username = strings.ToLower(strings.TrimSpace(username))
	var doc channelProfileDoc
	found, err := db.aggregateOne(ctx, colUsers,
		channelProfilePipeline(username, optionalObjectID(viewerID)), &doc)
	if err != nil {
		return nil, fmt.Errorf("mongo: loading channel %s: %w", username, err)
	}
	if !found {
		return nil, apperror.NotFoundMessage("Channel not found")
	}
	return &model.ChannelProfile{
		ID:                        doc.ID.Hex(),
		FullName:                  doc.FullName,
		Username:                  doc.Username,
		Email:                     doc.Email,
		Avatar:                    doc.Avatar,
		CoverImage:                doc.CoverImage,
		SubscribersCount:          doc.SubscribersCount,
		ChannelsSubscribedToCount: doc.ChannelsSubscribedToCount,
		IsSubscribed:              doc.IsSubscribed,
		CreatedAt:                 doc.CreatedAt.UTC(),
	}, nil
}

func (db *DB) WatchHistory(ctx context.Context, userID string) (_ []model.WatchedVideo, err error) {
	defer observe("watch_history", time.Now(), &err)

	uid, err := objectID("user", userID)
	if err != nil {
		return nil, err
	}
	var doc struct {
		WatchHistory []primitive.ObjectID `bson:"watchHistory"`
		History      []watchedVideoDoc    `bson:"history"`
	}
	found, err := db.aggregateOne(ctx, colUsers, watchHistoryPipeline(uid), &doc)
	if err != nil {
		return nil, fmt.Errorf("mongo: loading watch history: %w", err)
	}
	if !found {
		return nil, apperror.NotFound("user", userID)
	}

	byID := make(map[primitive.ObjectID]model.WatchedVideo, len(doc.History))
	for _, v := range doc.History {
		byID[v.ID] = v.toModel()
	}
	return orderByIDs(doc.WatchHistory, byID), nil
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/model"
)

// ToggleSubscription mirrors ToggleLike: delete if present, insert otherwise.
func (db *DB) ToggleSubscription(ctx context.Context, s *model.Subscription) (_ bool, err error) {
	defer observe("toggle_subscription", time.Now(), &err)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning subscription toggle: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = ? AND channel_id = ?`,
		s.SubscriberID, s.ChannelID)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: removing subscription: %w", err)
	}
	if n > 0 {
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("sqlite: committing unsubscribe: %w", err)
		}
		return false, nil
	}

	s.ID = xid.New().String()
	s.CreatedAt = now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.SubscriberID, s.ChannelID, s.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFoundMessage("Channel not found. Provide valid channel Id")
		}
		return false, fmt.Errorf("sqlite: inserting subscription: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing subscribe: %w", err)
	}
	return true, nil
}

func (db *DB) ListSubscribers(ctx context.Context, channelID string) (_ []model.ChannelSummary, err error) {
	defer observe("list_subscribers", time.Now(), &err)

	return db.channelSummaries(ctx,
		`SELECT u.id, u.username, u.full_name, u.email, u.avatar
		 FROM subscriptions s
		 JOIN users u ON u.id = s.subscriber_id
		 WHERE s.channel_id = ?
		 ORDER BY s.created_at, s.id`, channelID)
}

func (db *DB) ListSubscribedChannels(ctx context.Context, subscriberID string) (_ []model.ChannelSummary, err error) {
	defer observe("list_subscribed_channels", time.Now(), &err)

	return db.channelSummaries(ctx,
		`SELECT u.id, u.username, u.full_name, u.email, u.avatar
		 FROM subscriptions s
		 JOIN users u ON u.id = s.channel_id
		 WHERE s.subscriber_id = ?
		 ORDER BY s.created_at, s.id`, subscriberID)
}

func (db *DB) channelSummaries(ctx context.Context, query, id string) ([]model.ChannelSummary, error) {
	rows, err := db.conn.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing channels: %w", err)
	}
	defer rows.Close()

	out := []model.ChannelSummary{}
	for rows.Next() {
		var c model.ChannelSummary
		if err := rows.Scan(&c.ID, &c.Username, &c.FullName, &c.Email, &c.Avatar); err != nil {
			return nil, fmt.Errorf("sqlite: scanning channel: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating channels: %w", err)
	}
	return out, nil
}

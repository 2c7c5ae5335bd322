package pubsub

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/heykudos/kudos-backend/pkg/logger"
)

// FeedEvent is the broadcast payload telling listening views to re-fetch.
// There is no contract beyond "something changed for this company".
type FeedEvent struct {
	CompanyID  string    `json:"company_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// FeedBroadcaster publishes feed-refresh events without blocking callers on
// delivery. Publish failures are logged and dropped; the feed is advisory.
type FeedBroadcaster struct {
	pub  publisher
	logg *logger.Logger
}

// NewFeedBroadcaster wires a broadcaster over the feed topic publisher.
func NewFeedBroadcaster(pub *pubsub.Publisher, logg *logger.Logger) *FeedBroadcaster {
	if pub == nil {
		return &FeedBroadcaster{logg: logg}
	}
	return &FeedBroadcaster{pub: pub, logg: logg}
}

// Broadcast enqueues the event and returns immediately.
func (b *FeedBroadcaster) Broadcast(ctx context.Context, companyID string) {
	if b == nil || b.pub == nil {
		return
	}

	event := FeedEvent{CompanyID: companyID, OccurredAt: time.Now().UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		if b.logg != nil {
			b.logg.Error(ctx, "marshal feed event", err)
		}
		return
	}

	result := b.pub.Publish(ctx, &pubsub.Message{Data: data})

	go func() {
		// Detached from the request lifecycle on purpose.
		if _, err := result.Get(context.Background()); err != nil && b.logg != nil {
			b.logg.Warn(b.logg.WithField(context.Background(), "company_id", companyID), "feed broadcast dropped")
		}
	}()
}

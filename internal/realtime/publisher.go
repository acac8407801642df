package realtime

import (
	"context"

	"github.com/richxcame/ride-board/pkg/redis"
)

// Publisher notifies subscribers that the ride board changed.
// It satisfies rides.ChangePublisher.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a Redis-backed change publisher
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishChange fires a change notification. The payload carries no data;
// subscribers re-read the full list.
func (p *Publisher) PublishChange(ctx context.Context) error {
	return p.client.PublishMessage(ctx, ChangeChannel, "changed")
}

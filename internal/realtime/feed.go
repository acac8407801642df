package realtime

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/richxcame/ride-board/pkg/redis"
)

// ChangeChannel is the pub/sub channel carrying board change notifications
const ChangeChannel = "rides:changed"

// RedisChangeFeed implements ChangeFeed on top of Redis pub/sub
type RedisChangeFeed struct {
	client *redis.Client
	pubsub *goredis.PubSub
}

// NewRedisChangeFeed creates a change feed backed by Redis
func NewRedisChangeFeed(client *redis.Client) *RedisChangeFeed {
	return &RedisChangeFeed{client: client}
}

// Changes subscribes to the change channel and returns a channel of
// notifications. Bursts are coalesced; subscribers only ever need the
// latest state. The returned channel closes if the subscription dies.
func (f *RedisChangeFeed) Changes(ctx context.Context) (<-chan struct{}, error) {
	f.pubsub = f.client.SubscribeChannel(ctx, ChangeChannel)

	if _, err := f.pubsub.Receive(ctx); err != nil {
		_ = f.pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ChangeChannel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range f.pubsub.Channel() {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()

	return out, nil
}

// Close tears down the subscription
func (f *RedisChangeFeed) Close() error {
	if f.pubsub == nil {
		return nil
	}
	return f.pubsub.Close()
}

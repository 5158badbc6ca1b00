package chat

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRelay implements Relay over Redis pub/sub so multiple service
// processes share one broadcast space. Local delivery goes through an
// embedded Hub; Publish only writes to Redis, and events come back to
// every process (the publisher's included) via the subscription.
type RedisRelay struct {
	client *redis.Client
	local  *Hub
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]*groupSub
}

type groupSub struct {
	pubsub *redis.PubSub
	count  int
}

// NewRedisRelay builds a relay on top of an existing client.
func NewRedisRelay(client *redis.Client, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client: client,
		local:  NewHub(),
		logger: logger,
		subs:   make(map[string]*groupSub),
	}
}

// Join registers the member locally and opens the group's Redis
// subscription on first use.
func (r *RedisRelay) Join(group string, member Member) {
	r.local.Join(group, member)

	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[group]; ok {
		sub.count++
		return
	}

	pubsub := r.client.Subscribe(context.Background(), group)
	r.subs[group] = &groupSub{pubsub: pubsub, count: 1}
	go r.pump(group, pubsub)
}

// Leave removes the member and closes the subscription when the group
// empties. Leaving without a prior join is a no-op.
func (r *RedisRelay) Leave(group string, member Member) {
	r.local.Leave(group, member)

	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[group]
	if !ok {
		return
	}
	sub.count--
	if sub.count > 0 {
		return
	}
	delete(r.subs, group)
	if err := sub.pubsub.Close(); err != nil {
		r.logger.Warn("close group subscription", zap.String("group", group), zap.Error(err))
	}
}

// Publish writes the event to the group's Redis channel.
func (r *RedisRelay) Publish(ctx context.Context, group string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, group, payload).Err()
}

func (r *RedisRelay) pump(group string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			r.logger.Warn("malformed relay payload", zap.String("group", group), zap.Error(err))
			continue
		}
		_ = r.local.Publish(context.Background(), group, event)
	}
}

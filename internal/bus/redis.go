package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisChannel is the pub/sub channel used when none is configured.
const DefaultRedisChannel = "fieldsync:changes"

// RedisSignal carries changes between processes over a Redis pub/sub channel.
// Payloads are JSON-encoded Change values.
type RedisSignal struct {
	client  *redis.Client
	channel string
}

// NewRedisSignal creates a signal on the given client and channel.
func NewRedisSignal(client *redis.Client, channel string) *RedisSignal {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSignal{client: client, channel: channel}
}

// Notify publishes c on the channel.
func (s *RedisSignal) Notify(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe returns a channel of changes received from Redis. The
// subscription is confirmed before Subscribe returns. Malformed payloads are
// logged and skipped.
func (s *RedisSignal) Subscribe(ctx context.Context) (<-chan Change, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					slog.Warn("ignoring malformed change signal",
						"channel", s.channel,
						"error", err,
					)
					continue
				}
				select {
				case out <- c:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close closes the underlying client.
func (s *RedisSignal) Close() error {
	return s.client.Close()
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// RedisBroker publishes and subscribes image update events through Redis
// pub/sub, so updates reach clients connected to any node.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBroker creates a Redis-backed notification broker.
func NewRedisBroker(client *redis.Client, logger *slog.Logger) *RedisBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroker{client: client, logger: logger}
}

// Publish sends the event on the dream's channel as a JSON payload.
func (b *RedisBroker) Publish(ctx context.Context, event dreamlog.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, ChannelName(event.DreamID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", ChannelName(event.DreamID), err)
	}
	return nil
}

// Subscribe opens a Redis subscription on the dream's channel and decodes
// incoming payloads. Returned events stop when cancel is called or the
// context ends.
func (b *RedisBroker) Subscribe(ctx context.Context, dreamID uuid.UUID) (<-chan dreamlog.Event, func(), error) {
	sub := b.client.Subscribe(ctx, ChannelName(dreamID))

	// Force the subscription to be established before returning so callers
	// do not miss events published immediately after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", ChannelName(dreamID), err)
	}

	out := make(chan dreamlog.Event, subscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event dreamlog.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("discarding malformed event payload",
						"channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

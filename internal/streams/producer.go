package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jimdaga/studymate/internal/auth"
)

// Publisher publishes auth events to Redis Streams
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher instance
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Publisher{rdb: redis.NewClient(opts)}, nil
}

// PublishAuthEvent appends ev to the auth events stream and returns the entry ID.
func (p *Publisher) PublishAuthEvent(ctx context.Context, ev AuthEvent) (string, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamAuthEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":        string(payload),
			"event_type":     ev.Type,
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})

	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return result.Val(), nil
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// Forwarder returns an auth listener that publishes every event to the stream.
// Publish failures are logged; the request that caused the event is not failed.
func Forwarder(p *Publisher, logger *slog.Logger) auth.Listener {
	return func(ctx context.Context, ev auth.Event) {
		id, err := p.PublishAuthEvent(context.WithoutCancel(ctx), FromAuthEvent(ev))
		if err != nil {
			logger.Error("failed to publish auth event", "error", err, "type", ev.Type, "user_id", ev.UserID)
			return
		}
		logger.Debug("auth event published", "stream_id", id, "type", ev.Type)
	}
}

// Inline returns an auth listener that runs handler in-process, for
// deployments without Redis.
func Inline(handler func(context.Context, AuthEvent) error, logger *slog.Logger) auth.Listener {
	return func(ctx context.Context, ev auth.Event) {
		if err := handler(context.WithoutCancel(ctx), FromAuthEvent(ev)); err != nil {
			logger.Error("auth event handler failed", "error", err, "type", ev.Type, "user_id", ev.UserID)
		}
	}
}

package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// EventConsumer consumes auth events from Redis Streams
type EventConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
	logger       *slog.Logger
}

// NewEventConsumer creates the consumer and its group if missing.
func NewEventConsumer(redisURL, consumerName string, logger *slog.Logger) (*EventConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	// Start ID "0" reads from the beginning when the group is new.
	err = client.XGroupCreateMkStream(context.Background(), StreamAuthEvents, GroupGoWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &EventConsumer{
		rdb:          client,
		groupName:    GroupGoWorkers,
		consumerName: consumerName,
		logger:       logger.With("component", "stream_consumer", "stream", StreamAuthEvents),
	}, nil
}

// Consume runs a blocking loop until ctx is cancelled. Messages are ACKed
// only after handler succeeds, so failed ones stay pending.
func (c *EventConsumer) Consume(ctx context.Context, handler func(context.Context, AuthEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamAuthEvents, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads time out when nothing arrives within Block.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			c.logger.Error("failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.process(ctx, message, handler)
			}
		}
	}
}

func (c *EventConsumer) process(ctx context.Context, message redis.XMessage, handler func(context.Context, AuthEvent) error) {
	payloadStr, ok := message.Values["payload"].(string)
	if !ok {
		c.logger.Error("invalid message payload", "message_id", message.ID)
		return
	}

	var ev AuthEvent
	if err := json.Unmarshal([]byte(payloadStr), &ev); err != nil {
		c.logger.Error("failed to unmarshal event", "error", err, "message_id", message.ID)
		return
	}

	if err := handler(ctx, ev); err != nil {
		c.logger.Error("handler failed", "error", err, "message_id", message.ID, "type", ev.Type)
		return
	}

	if err := c.rdb.XAck(ctx, StreamAuthEvents, c.groupName, message.ID).Err(); err != nil {
		c.logger.Error("failed to ACK message", "error", err, "message_id", message.ID)
	}
}

// Close closes the Redis client connection
func (c *EventConsumer) Close() error {
	return c.rdb.Close()
}

// StartEventConsumer starts the consumer in a background goroutine and
// returns a stop function.
func StartEventConsumer(redisURL, consumerName string, db *gorm.DB, logger *slog.Logger) (stop func(), err error) {
	consumer, err := NewEventConsumer(redisURL, consumerName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := consumer.Consume(ctx, HandleAuthEvent(db, logger)); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event consumer stopped with error", "error", err)
		}
	}()

	logger.Info("event consumer started", "consumer", consumerName)

	return func() {
		cancel()
		<-done
		consumer.Close()
	}, nil
}

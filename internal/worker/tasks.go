package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskRemoveMaterialFile = "material:remove_file"
	TaskPurgeSessions      = "auth:purge_sessions"
)

// RemoveMaterialFilePayload names the storage object to delete.
type RemoveMaterialFilePayload struct {
	Path string `json:"path"`
}

// NewRemoveMaterialFileTask builds a storage cleanup task. It is retried up
// to 5 times and kept for a day after completion.
func NewRemoveMaterialFileTask(path string) (*asynq.Task, error) {
	payload, err := json.Marshal(RemoveMaterialFilePayload{Path: path})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskRemoveMaterialFile,
		payload,
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// Client enqueues background tasks.
type Client struct {
	client *asynq.Client
}

// NewClient connects an Asynq client to redisURL.
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// EnqueueRemoveMaterialFile schedules a retried removal of a stored file.
func (c *Client) EnqueueRemoveMaterialFile(ctx context.Context, path string) error {
	task, err := NewRemoveMaterialFileTask(path)
	if err != nil {
		return err
	}

	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TaskRemoveMaterialFile, err)
	}
	return nil
}

// Close closes the Asynq client connection gracefully.
func (c *Client) Close() error {
	return c.client.Close()
}

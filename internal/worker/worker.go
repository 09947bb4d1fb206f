package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/studymate/internal/storage"
)

// SessionPurger deletes expired sign-in sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Deps are the collaborators task handlers need.
type Deps struct {
	Store    storage.Store
	Sessions SessionPurger
	Logger   *slog.Logger
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(redisURL string, deps Deps) error {
	srv, mux, err := newServer(redisURL, deps)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(redisURL string, deps Deps) (stop func(), err error) {
	srv, mux, err := newServer(redisURL, deps)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return srv.Shutdown, nil
}

func newServer(redisURL string, deps Deps) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := deps.Logger.With("component", "worker")

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	logger.Info("worker starting", "concurrency", 5)
	return srv, NewMux(deps), nil
}

// NewMux registers every task handler.
func NewMux(deps Deps) *asynq.ServeMux {
	logger := deps.Logger.With("component", "worker")

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRemoveMaterialFile, handleRemoveMaterialFile(logger, deps.Store))
	mux.HandleFunc(TaskPurgeSessions, handlePurgeSessions(logger, deps.Sessions))
	return mux
}

// handleRemoveMaterialFile deletes a stored object whose removal failed
// during a material delete. A missing object counts as done.
func handleRemoveMaterialFile(logger *slog.Logger, store storage.Store) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload RemoveMaterialFilePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		if payload.Path == "" {
			return fmt.Errorf("empty object path: %w", asynq.SkipRetry)
		}

		err := store.Remove(ctx, payload.Path)
		if errors.Is(err, storage.ErrObjectNotFound) {
			logger.Info("stored file already gone", "path", payload.Path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to remove stored file: %w", err)
		}

		logger.Info("stored file removed", "path", payload.Path)
		return nil
	}
}

func handlePurgeSessions(logger *slog.Logger, sessions SessionPurger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := sessions.PurgeExpiredSessions(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		logger.Info("expired sessions purged", "count", n)
		return nil
	}
}

func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			logger.Error(
				"task moved to archive after exhausting retries",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}

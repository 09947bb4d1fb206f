package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// StartScheduler registers the periodic session purge and starts the
// scheduler. Returns a stop function for graceful shutdown.
func StartScheduler(redisURL, purgeSchedule string, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger.With("component", "scheduler")},
		},
	)

	task := asynq.NewTask(
		TaskPurgeSessions,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(30*time.Minute), // prevent duplicates when several schedulers run
	)

	entryID, err := scheduler.Register(purgeSchedule, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register session purge schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info("scheduler started", "schedule", purgeSchedule, "entry_id", entryID)

	return scheduler.Shutdown, nil
}

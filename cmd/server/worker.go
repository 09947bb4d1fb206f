package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimdaga/studymate/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background worker",
	Long: `Run the task worker, the session purge scheduler and the auth event consumer.
Blocks until SIGINT or SIGTERM. Requires REDIS_URL.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required to run the worker")
	}

	stopBackground, err := a.startBackground(false)
	if err != nil {
		return err
	}
	defer stopBackground()

	// asynq's Run handles the shutdown signals itself.
	return worker.Run(a.cfg.RedisURL, a.workerDeps())
}

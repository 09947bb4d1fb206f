package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/materials"
	"github.com/jimdaga/studymate/internal/server"
	"github.com/jimdaga/studymate/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API. When REDIS_URL is set and EMBEDDED_WORKER is true the
task worker, scheduler and auth event consumer run in the same process.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var cleanup materials.FileCleanup
	if cfg.RedisURL != "" {
		client, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		cleanup = client

		if cfg.EmbeddedWorker {
			stopBackground, err := a.startBackground(true)
			if err != nil {
				return err
			}
			defer stopBackground()
		}
	} else {
		logger.Warn("REDIS_URL not set; background tasks are disabled and auth events are applied inline")
	}

	auth.InitProviders(cfg, logger)

	deps, err := a.routerDeps(cleanup)
	if err != nil {
		return err
	}

	srv := server.NewHTTPServer(":"+cfg.Port, server.NewRouter(deps))

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "port", cfg.Port, "env", cfg.Env)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("api server stopped")
	return nil
}

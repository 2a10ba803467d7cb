// Command worker applies queued interactions and ratings.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/app"
	"github.com/pageza/flavor-monk/backend/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	if a.Redis == nil {
		zapLogger.Warn("No Redis connection; this worker only sees tasks enqueued by its own process")
	}

	zapLogger.Info("Starting feedback worker", zap.String("queue", cfg.Queue.Name))
	if err := a.Worker().Run(ctx); err != nil {
		zapLogger.Error("Worker stopped with error", zap.Error(err))
		return
	}
	zapLogger.Info("Worker stopped")
}

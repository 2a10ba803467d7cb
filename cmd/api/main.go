package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/app"
	"github.com/pageza/flavor-monk/backend/internal/database"
	"github.com/pageza/flavor-monk/backend/internal/logger"
	"github.com/pageza/flavor-monk/backend/internal/server"
)

func main() {
	// Load configuration
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

	if err := database.RunMigrations(a.DB, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	srv := server.NewServer(cfg.Server, a.Dependencies(), a.Metrics, zapLogger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if cfg.Queue.InProcess {
		g.Go(func() error { return a.Worker().Run(ctx) })
	}

	zapLogger.Info("Starting Flavor Monk API",
		zap.String("environment", string(cfg.Environment)),
		zap.String("port", cfg.Server.Port),
		zap.Bool("in_process_worker", cfg.Queue.InProcess))

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
		return
	}
	zapLogger.Info("Server stopped")
}

// Command seed_test_users creates demo accounts with completed
// questionnaires so the ranking pipeline has profiles to work with.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/app"
	"github.com/pageza/flavor-monk/backend/internal/database"
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

	ctx := context.Background()
	a, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	if err := database.RunMigrations(a.DB, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	created := seedUsers(ctx, a.Auth, a.Profiles, demoUsers, zapLogger)
	zapLogger.Info("Demo users ready", zap.Int("created", created), zap.String("password", demoPassword))
}

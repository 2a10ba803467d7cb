package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
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

	db, err := database.New(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := database.RunMigrations(db, zapLogger); err != nil {
		zapLogger.Fatal("Migration failed", zap.Error(err))
	}
	zapLogger.Info("Migrations applied")
}

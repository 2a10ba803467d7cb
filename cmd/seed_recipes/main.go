// Command seed_recipes loads a recipe catalog into the database and indexes
// it for semantic search.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/app"
	"github.com/pageza/flavor-monk/backend/internal/database"
	"github.com/pageza/flavor-monk/backend/internal/logger"
	"github.com/pageza/flavor-monk/backend/internal/models"
)

//go:embed recipes.json
var defaultCatalog []byte

func main() {
	file := flag.String("file", "", "JSON recipe catalog (defaults to the bundled sample)")
	reindex := flag.Bool("reindex", false, "Recompute every embedding after seeding")
	flag.Parse()

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

	data := defaultCatalog
	if *file != "" {
		if data, err = os.ReadFile(*file); err != nil {
			zapLogger.Fatal("Failed to read catalog", zap.String("file", *file), zap.Error(err))
		}
	}

	var recipes []models.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		zapLogger.Fatal("Failed to parse catalog", zap.Error(err))
	}

	created, skipped := seed(ctx, a.DB, a.Recipes, recipes, zapLogger)
	zapLogger.Info("Seeding complete", zap.Int("created", created), zap.Int("skipped", skipped))

	if *reindex {
		n, err := a.Vectors.Reindex(ctx)
		if err != nil {
			zapLogger.Fatal("Reindex failed", zap.Error(err))
		}
		zapLogger.Info("Reindexed recipes", zap.Int("count", n))
	}
}

package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/models"
)

// RunMigrations brings the schema up to date. On Postgres it also enables
// pgvector and indexes the embedding column for cosine distance.
func RunMigrations(db *gorm.DB, logger *zap.Logger) error {
	postgres := db.Dialector.Name() == "postgres"

	if postgres {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to enable pgvector: %w", err)
		}
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if postgres {
		if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_recipe_embeddings_cosine
			ON recipe_embeddings USING hnsw (embedding vector_cosine_ops)`).Error; err != nil {
			return fmt.Errorf("failed to create embedding index: %w", err)
		}
	}

	logger.Info("database schema is up to date", zap.String("dialect", db.Dialector.Name()))
	return nil
}

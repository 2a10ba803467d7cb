package main

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/service"
)

// seed creates every recipe whose name is not in the catalog yet.
func seed(ctx context.Context, db *gorm.DB, recipes service.IRecipeService, catalog []models.Recipe, logger *zap.Logger) (created, skipped int) {
	for i := range catalog {
		r := catalog[i]
		var count int64
		if err := db.WithContext(ctx).Model(&models.Recipe{}).Where("name = ?", r.Name).Count(&count).Error; err != nil {
			logger.Error("Failed to check recipe", zap.String("name", r.Name), zap.Error(err))
			continue
		}
		if count > 0 {
			skipped++
			continue
		}
		for j := range r.Ingredients {
			r.Ingredients[j].Position = j
		}
		for j := range r.Steps {
			r.Steps[j].Position = j
		}
		if r.Source == "" {
			r.Source = "seed"
		}
		if _, err := recipes.CreateRecipe(ctx, &r); err != nil {
			logger.Error("Failed to create recipe", zap.String("name", r.Name), zap.Error(err))
			continue
		}
		created++
	}
	return created, skipped
}

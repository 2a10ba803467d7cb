package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

// FeedbackService records ratings and learns ingredient affinities from
// them.
type FeedbackService struct {
	db          *gorm.DB
	quality     *QualityService
	invalidator CacheInvalidator
	logger      *zap.Logger
}

func NewFeedbackService(db *gorm.DB, quality *QualityService, invalidator CacheInvalidator, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{db: db, quality: quality, invalidator: invalidator, logger: logger.Named("feedback")}
}

// SubmitRating stores the rating, nudges the user's affinity for every
// ingredient of the recipe, refreshes the recipe's rating aggregate and
// re-evaluates its quality. Each event ID is applied once.
func (s *FeedbackService) SubmitRating(ctx context.Context, ev RatingEvent) (bool, error) {
	if ev.Rating < 1 || ev.Rating > 5 {
		return false, apperrors.Input("rating must be between 1 and 5")
	}
	id, userID, recipeID, err := parseEventIDs(ev.ID, ev.UserID, ev.RecipeID)
	if err != nil {
		return false, err
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	applied := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := lockRecipe(tx, recipeID)
		if err != nil {
			return err
		}

		row := models.RecipeRating{
			ID:        id,
			UserID:    userID,
			RecipeID:  recipeID,
			Rating:    ev.Rating,
			Notes:     ev.Notes,
			CreatedAt: ev.OccurredAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("failed to store rating: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		var ingredients []string
		if err := tx.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", recipeID).
			Order("position").Pluck("name", &ingredients).Error; err != nil {
			return fmt.Errorf("failed to load ingredients: %w", err)
		}
		if err := nudgeAffinities(tx, userID, ev.Rating, ingredients); err != nil {
			return err
		}

		count := recipe.RatingCount + 1
		avg := (recipe.AverageRating*float64(recipe.RatingCount) + float64(ev.Rating)) / float64(count)
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(map[string]interface{}{
			"rating_count":   count,
			"average_rating": avg,
		}).Error; err != nil {
			return fmt.Errorf("failed to update rating aggregate: %w", err)
		}
		return nil
	})
	if err != nil || !applied {
		return applied, err
	}

	if s.quality != nil {
		if _, err := s.quality.Evaluate(ctx, recipeID); err != nil {
			s.logger.Warn("quality evaluation failed", zap.String("recipe_id", ev.RecipeID), zap.Error(err))
		}
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateUser(ctx, ev.UserID); err != nil {
			s.logger.Warn("failed to invalidate rankings", zap.String("user_id", ev.UserID), zap.Error(err))
		}
	}
	return true, nil
}

// nudgeAffinities adds the rating's affinity delta to each ingredient in a
// single upsert per ingredient.
func nudgeAffinities(tx *gorm.DB, userID uuid.UUID, rating int, ingredients []string) error {
	delta := recommend.AffinityDelta(rating)
	if delta == 0 {
		return nil
	}
	nudges := recommend.ApplyRating(nil, rating, ingredients)
	now := time.Now()
	for _, ing := range sortedNames(nudges) {
		row := models.IngredientAffinity{ID: uuid.New(), UserID: userID, Ingredient: ing, Score: delta, UpdatedAt: now}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "ingredient"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":      gorm.Expr("ingredient_affinities.score + ?", delta),
				"updated_at": now,
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to update affinity for %s: %w", ing, err)
		}
	}
	return nil
}

// AffinityHistory returns the user's learned affinities, strongest first.
func (s *FeedbackService) AffinityHistory(ctx context.Context, userID uuid.UUID) ([]models.IngredientAffinity, error) {
	var rows []models.IngredientAffinity
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("score DESC").Order("ingredient").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load affinities: %w", err)
	}
	return rows, nil
}

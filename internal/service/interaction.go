package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

const (
	// repeatCookSignal is the quality bump of a recipe cooked again.
	repeatCookSignal = 0.1 * 1.5
	maxQualityScore  = 5.0

	reviewCompletionRate = 0.5
	reviewMinStarts      = 20
)

// InteractionService appends interactions and keeps the recipe counters
// derived from them.
type InteractionService struct {
	db          *gorm.DB
	quality     *QualityService
	invalidator CacheInvalidator
	logger      *zap.Logger
}

func NewInteractionService(db *gorm.DB, quality *QualityService, invalidator CacheInvalidator, logger *zap.Logger) *InteractionService {
	return &InteractionService{db: db, quality: quality, invalidator: invalidator, logger: logger.Named("interactions")}
}

// RecordInteraction implements recommend.InteractionRecorder.
func (s *InteractionService) RecordInteraction(ctx context.Context, userID, recipeID string, flags recommend.InteractionFlags) error {
	_, err := s.Apply(ctx, InteractionEvent{
		ID:               uuid.NewString(),
		UserID:           userID,
		RecipeID:         recipeID,
		OccurredAt:       time.Now(),
		InteractionFlags: flags,
	})
	return err
}

// Apply stores the interaction and updates the recipe counters once per
// event ID. It reports whether the event was new.
func (s *InteractionService) Apply(ctx context.Context, ev InteractionEvent) (bool, error) {
	id, userID, recipeID, err := parseEventIDs(ev.ID, ev.UserID, ev.RecipeID)
	if err != nil {
		return false, err
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	applied, rateChanged := false, false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := lockRecipe(tx, recipeID)
		if err != nil {
			return err
		}

		row := models.Interaction{
			ID:                id,
			UserID:            userID,
			RecipeID:          recipeID,
			Viewed:            ev.Viewed,
			Saved:             ev.Saved,
			Started:           ev.Started,
			Completed:         ev.Completed,
			PhotoUploaded:     ev.PhotoUploaded,
			SharedWithFriends: ev.SharedWithFriends,
			MadeAgain:         ev.MadeAgain,
			CreatedAt:         ev.OccurredAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("failed to store interaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		updates := recipeCounters(recipe, ev.InteractionFlags)
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update recipe metrics: %w", err)
		}
		_, rateChanged = updates["completion_rate"]
		return nil
	})
	if err != nil || !applied {
		return applied, err
	}

	if rateChanged && s.quality != nil {
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

// recipeCounters returns the column updates one interaction causes.
func recipeCounters(r *models.Recipe, f recommend.InteractionFlags) map[string]interface{} {
	updates := make(map[string]interface{})
	started, completed := r.StartedCount, r.CompletedCount
	if f.Started {
		started++
		updates["started_count"] = started
	}
	if f.Completed {
		completed++
		updates["completed_count"] = completed
	}
	if f.Started || f.Completed {
		rate := CompletionRate(started, completed)
		updates["completion_rate"] = rate
		if rate < reviewCompletionRate && started > reviewMinStarts && !r.FlaggedForReview {
			updates["flagged_for_review"] = true
		}
	}
	if f.MadeAgain {
		updates["quality_score"] = math.Min(maxQualityScore, r.QualityScore+repeatCookSignal)
	}
	return updates
}

// CompletionRate is completed over started, 0 before anyone started.
func CompletionRate(started, completed int) float64 {
	if started <= 0 {
		return 0
	}
	return math.Min(1, float64(completed)/float64(started))
}

// lockRecipe loads a live recipe, row-locking it where the dialect allows.
func lockRecipe(tx *gorm.DB, id uuid.UUID) (*models.Recipe, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var recipe models.Recipe
	err := q.First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("recipe")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return &recipe, nil
}

func parseEventIDs(eventID, userID, recipeID string) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	id, err := uuid.Parse(eventID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, apperrors.Input("invalid event id %q", eventID)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, apperrors.Input("invalid user id %q", userID)
	}
	rid, err := uuid.Parse(recipeID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, apperrors.Input("invalid recipe id %q", recipeID)
	}
	return id, uid, rid, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/models"
)

// QualityThresholds decide when a recipe leaves the catalog.
type QualityThresholds struct {
	MinRating         float64
	MinFeedbackCount  int
	MinCompletionRate float64
}

// DefaultQualityThresholds archive recipes rated below 3.5, or cooked to
// the end less than half the time, once they have ten ratings.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{MinRating: 3.5, MinFeedbackCount: 10, MinCompletionRate: 0.5}
}

// Verdict is the outcome of one quality evaluation.
type Verdict struct {
	Archived bool   `json:"archived"`
	Reason   string `json:"reason,omitempty"`
}

// snapshotLinkTTL bounds download links handed out for archived snapshots.
const snapshotLinkTTL = 15 * time.Minute

// ArchivedRecipe is the archive record of a recipe together with its stored
// snapshot. DownloadURL is only set when the store can presign links.
type ArchivedRecipe struct {
	models.RecipeArchive
	Snapshot    json.RawMessage `json:"snapshot"`
	DownloadURL string          `json:"download_url,omitempty"`
}

// QualityService archives recipes that users consistently reject. Archived
// recipes are snapshotted and soft deleted, never physically removed.
type QualityService struct {
	db         *gorm.DB
	archive    ArchiveStore
	thresholds QualityThresholds
	logger     *zap.Logger
}

func NewQualityService(db *gorm.DB, archive ArchiveStore, thresholds QualityThresholds, logger *zap.Logger) *QualityService {
	return &QualityService{db: db, archive: archive, thresholds: thresholds, logger: logger.Named("quality")}
}

// Judge decides whether r should be archived. The completion criterion only
// applies once someone has started the recipe.
func (t QualityThresholds) Judge(r *models.Recipe) Verdict {
	if r.RatingCount < t.MinFeedbackCount {
		return Verdict{}
	}
	if r.AverageRating < t.MinRating {
		return Verdict{Archived: true, Reason: fmt.Sprintf("average rating %.2f below %.2f", r.AverageRating, t.MinRating)}
	}
	if r.StartedCount > 0 && r.CompletionRate < t.MinCompletionRate {
		return Verdict{Archived: true, Reason: fmt.Sprintf("completion rate %.2f below %.2f", r.CompletionRate, t.MinCompletionRate)}
	}
	return Verdict{}
}

// Evaluate judges a recipe and archives it when it fails.
func (s *QualityService) Evaluate(ctx context.Context, recipeID uuid.UUID) (Verdict, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Preload("Ingredients", orderByPosition).Preload("Steps", orderByPosition).
		Preload("Tags").First(&recipe, "id = ?", recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Verdict{}, apperrors.NotFound("recipe")
	}
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to load recipe: %w", err)
	}

	verdict := s.thresholds.Judge(&recipe)
	if !verdict.Archived {
		return verdict, nil
	}
	if err := s.Archive(ctx, &recipe, verdict.Reason); err != nil {
		return Verdict{}, err
	}
	return verdict, nil
}

// Archive snapshots the recipe to the archive store, records where it went
// and soft deletes it.
func (s *QualityService) Archive(ctx context.Context, recipe *models.Recipe, reason string) error {
	snapshot, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to encode recipe snapshot: %w", err)
	}
	key := fmt.Sprintf("recipes/%s/%s.json", recipe.ID, time.Now().UTC().Format("20060102T150405Z"))
	if err := s.archive.Put(ctx, key, snapshot, "application/json"); err != nil {
		return fmt.Errorf("failed to store recipe snapshot: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.RecipeArchive{
			ID:             uuid.New(),
			RecipeID:       recipe.ID,
			Reason:         reason,
			SnapshotKey:    key,
			AverageRating:  recipe.AverageRating,
			RatingCount:    recipe.RatingCount,
			CompletionRate: recipe.CompletionRate,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to record archive: %w", err)
		}
		if err := tx.Delete(&models.Recipe{}, "id = ?", recipe.ID).Error; err != nil {
			return fmt.Errorf("failed to archive recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("recipe archived",
		zap.String("recipe_id", recipe.ID.String()),
		zap.String("reason", reason),
		zap.String("snapshot", key))
	return nil
}

// FlaggedRecipes lists recipes waiting for manual review.
func (s *QualityService) FlaggedRecipes(ctx context.Context) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Where("flagged_for_review = ?", true).Order("completion_rate").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to list flagged recipes: %w", err)
	}
	return recipes, nil
}

// ArchivedRecipe loads the archive record and snapshot of an archived recipe.
func (s *QualityService) ArchivedRecipe(ctx context.Context, recipeID uuid.UUID) (*ArchivedRecipe, error) {
	var row models.RecipeArchive
	err := s.db.WithContext(ctx).Where("recipe_id = ?", recipeID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("archived recipe")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archive record: %w", err)
	}

	snapshot, err := s.archive.Get(ctx, row.SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe snapshot: %w", err)
	}
	out := &ArchivedRecipe{RecipeArchive: row, Snapshot: snapshot}

	if linker, ok := s.archive.(ArchiveLinker); ok {
		url, err := linker.PresignURL(ctx, row.SnapshotKey, snapshotLinkTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to link recipe snapshot: %w", err)
		}
		out.DownloadURL = url
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

// CacheInvalidator drops cached rankings of a user.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// ProfileService stores questionnaire answers and assembles the profiles
// the ranking pipeline reads.
type ProfileService struct {
	db          *gorm.DB
	invalidator CacheInvalidator
	logger      *zap.Logger
}

func NewProfileService(db *gorm.DB, invalidator CacheInvalidator, logger *zap.Logger) *ProfileService {
	return &ProfileService{db: db, invalidator: invalidator, logger: logger.Named("profiles")}
}

// SetInvalidator replaces the cache invalidator. The ranking engine reads
// profiles from this service, so it can only be attached afterwards.
func (s *ProfileService) SetInvalidator(invalidator CacheInvalidator) {
	s.invalidator = invalidator
}

// SubmitQuestionnaire validates the answers, archives the user's current
// profile and stores the new one.
func (s *ProfileService) SubmitQuestionnaire(ctx context.Context, userID uuid.UUID, q recommend.Questionnaire) (*recommend.Profile, error) {
	q.UserID = userID.String()
	normalized, err := recommend.Normalize(q, nil)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user")
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		if err := tx.Model(&models.UserProfile{}).
			Where("user_id = ? AND archived = ?", userID, false).
			Update("archived", true).Error; err != nil {
			return fmt.Errorf("failed to archive profile: %w", err)
		}

		profile := profileRow(userID, normalized)
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.HealthCondition{}).Error; err != nil {
			return fmt.Errorf("failed to clear health conditions: %w", err)
		}
		for _, hc := range normalized.HealthConditions {
			row := models.HealthCondition{ID: uuid.New(), UserID: userID, Name: string(hc.Condition), Severity: hc.Severity}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to store health condition: %w", err)
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.Allergen{}).Error; err != nil {
			return fmt.Errorf("failed to clear allergens: %w", err)
		}
		for _, a := range normalized.Allergies {
			row := models.Allergen{ID: uuid.New(), UserID: userID, AllergenName: a}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to store allergen: %w", err)
			}
		}

		return seedDislikes(tx, userID, normalized.IngredientAffinities)
	})
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateUser(ctx, userID.String()); err != nil {
			s.logger.Warn("failed to invalidate rankings", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return s.GetUserProfile(ctx, userID.String())
}

// seedDislikes lowers learned affinities to the questionnaire dislike score
// without raising any that are already lower.
func seedDislikes(tx *gorm.DB, userID uuid.UUID, dislikes map[string]float64) error {
	for _, ing := range sortedNames(dislikes) {
		score := dislikes[ing]
		var existing models.IngredientAffinity
		err := tx.Where("user_id = ? AND ingredient = ?", userID, ing).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := models.IngredientAffinity{ID: uuid.New(), UserID: userID, Ingredient: ing, Score: score, UpdatedAt: time.Now()}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to store dislike: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load affinity: %w", err)
		case existing.Score > score:
			if err := tx.Model(&existing).Update("score", score).Error; err != nil {
				return fmt.Errorf("failed to update affinity: %w", err)
			}
		}
	}
	return nil
}

func profileRow(userID uuid.UUID, p *recommend.Profile) models.UserProfile {
	secondary := make(models.StringSet, 0, len(p.SecondaryGoals))
	for _, g := range p.SecondaryGoals {
		secondary = append(secondary, string(g))
	}
	return models.UserProfile{
		ID:                       uuid.New(),
		UserID:                   userID,
		PrimaryGoal:              string(p.PrimaryGoal),
		SecondaryGoals:           secondary,
		CookingSkill:             p.CookingSkill,
		MaxPrepTime:              p.MaxPrepTime,
		Budget:                   string(p.Budget),
		HouseholdSize:            p.HouseholdSize,
		SpiceTolerance:           p.SpiceTolerance,
		PortionControlMotivation: p.PortionControlMotivation,
		HabitChangeReadiness:     models.StringSet(p.HabitChangeReadiness),
		Appliances:               models.StringSet(p.Appliances),
		CuisinePreferences:       models.StringSet(p.CuisinePreferences),
		NutrientDeficiencies:     models.StringSet(p.NutrientDeficiencies),
	}
}

// GetUserProfile implements recommend.ProfileStore.
func (s *ProfileService) GetUserProfile(ctx context.Context, userID string) (*recommend.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Input("invalid user id %q", userID)
	}
	db := s.db.WithContext(ctx)

	var row models.UserProfile
	err = db.Where("user_id = ? AND archived = ?", id, false).Order("created_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("profile")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	p := &recommend.Profile{
		UserID:                   userID,
		CookingSkill:             row.CookingSkill,
		MaxPrepTime:              row.MaxPrepTime,
		Budget:                   recommend.Budget(row.Budget),
		HouseholdSize:            row.HouseholdSize,
		SpiceTolerance:           row.SpiceTolerance,
		PortionControlMotivation: row.PortionControlMotivation,
		HabitChangeReadiness:     []string(row.HabitChangeReadiness),
		Appliances:               []string(row.Appliances),
		CuisinePreferences:       []string(row.CuisinePreferences),
		NutrientDeficiencies:     []string(row.NutrientDeficiencies),
		IngredientAffinities:     make(map[string]float64),
	}
	if g, err := recommend.ParseGoal(row.PrimaryGoal); err == nil {
		p.PrimaryGoal = g
	}
	for _, name := range row.SecondaryGoals {
		if g, err := recommend.ParseGoal(name); err == nil {
			p.SecondaryGoals = append(p.SecondaryGoals, g)
		}
	}

	var conditions []models.HealthCondition
	if err := db.Where("user_id = ?", id).Order("name").Find(&conditions).Error; err != nil {
		return nil, fmt.Errorf("failed to load health conditions: %w", err)
	}
	for _, hc := range conditions {
		c, err := recommend.ParseCondition(hc.Name)
		if err != nil {
			s.logger.Warn("skipping unknown health condition", zap.String("name", hc.Name))
			continue
		}
		p.HealthConditions = append(p.HealthConditions, recommend.HealthCondition{Condition: c, Severity: hc.Severity})
	}

	var allergens []models.Allergen
	if err := db.Where("user_id = ?", id).Order("allergen_name").Find(&allergens).Error; err != nil {
		return nil, fmt.Errorf("failed to load allergens: %w", err)
	}
	for _, a := range allergens {
		p.Allergies = append(p.Allergies, a.AllergenName)
	}

	var affinities []models.IngredientAffinity
	if err := db.Where("user_id = ?", id).Find(&affinities).Error; err != nil {
		return nil, fmt.Errorf("failed to load affinities: %w", err)
	}
	for _, a := range affinities {
		p.IngredientAffinities[a.Ingredient] = a.Score
	}

	var ratings []models.RecipeRating
	if err := db.Where("user_id = ?", id).Order("created_at").Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	for _, r := range ratings {
		p.RecordRating(r.RecipeID.String(), r.Rating)
	}

	return p, nil
}

// GetProfileHistory returns every questionnaire submission, newest first.
func (s *ProfileService) GetProfileHistory(ctx context.Context, userID uuid.UUID) ([]models.UserProfile, error) {
	var rows []models.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile history: %w", err)
	}
	return rows, nil
}

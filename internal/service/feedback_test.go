package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/testhelpers"
)

func setupFeedbackTest(t *testing.T) (*gorm.DB, *service.FeedbackService, *memArchive, *recordingInvalidator) {
	db := testhelpers.NewSQLiteDB(t)
	archive := newMemArchive()
	invalidator := &recordingInvalidator{}
	quality := service.NewQualityService(db, archive, service.DefaultQualityThresholds(), testLogger)
	return db, service.NewFeedbackService(db, quality, invalidator, testLogger), archive, invalidator
}

func rate(userID, recipeID uuid.UUID, rating int) service.RatingEvent {
	return service.RatingEvent{
		ID:       uuid.NewString(),
		UserID:   userID.String(),
		RecipeID: recipeID.String(),
		Rating:   rating,
	}
}

func affinities(t *testing.T, db *gorm.DB, userID uuid.UUID) map[string]float64 {
	t.Helper()
	var rows []models.IngredientAffinity
	require.NoError(t, db.Where("user_id = ?", userID).Find(&rows).Error)
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Ingredient] = r.Score
	}
	return out
}

func TestFeedbackService_SubmitRating(t *testing.T) {
	db, svc, _, invalidator := setupFeedbackTest(t)
	user := testhelpers.CreateTestUser(t, db)
	recipe := testhelpers.CreateTestRecipe(t, db, "garlic shrimp", testhelpers.WithIngredients("garlic", "shrimp"))
	ctx := context.Background()

	applied, err := svc.SubmitRating(ctx, rate(user.ID, recipe.ID, 5))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, map[string]float64{"garlic": 2, "shrimp": 2}, affinities(t, db, user.ID))

	applied, err = svc.SubmitRating(ctx, rate(user.ID, recipe.ID, 2))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, map[string]float64{"garlic": 1, "shrimp": 1}, affinities(t, db, user.ID))

	var stored models.Recipe
	require.NoError(t, db.First(&stored, "id = ?", recipe.ID).Error)
	assert.Equal(t, 2, stored.RatingCount)
	assert.InDelta(t, 3.5, stored.AverageRating, 1e-9)
	assert.Len(t, invalidator.calls(), 2)
}

func TestFeedbackService_NeutralRatingLeavesAffinities(t *testing.T) {
	db, svc, _, _ := setupFeedbackTest(t)
	user := testhelpers.CreateTestUser(t, db)
	recipe := testhelpers.CreateTestRecipe(t, db, "plain rice")

	_, err := svc.SubmitRating(context.Background(), rate(user.ID, recipe.ID, 3))
	require.NoError(t, err)
	assert.Empty(t, affinities(t, db, user.ID))
}

func TestFeedbackService_RedeliveryIsIgnored(t *testing.T) {
	db, svc, _, _ := setupFeedbackTest(t)
	user := testhelpers.CreateTestUser(t, db)
	recipe := testhelpers.CreateTestRecipe(t, db, "ramen", testhelpers.WithIngredients("noodles"))
	ctx := context.Background()

	ev := rate(user.ID, recipe.ID, 4)
	applied, err := svc.SubmitRating(ctx, ev)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.SubmitRating(ctx, ev)
	require.NoError(t, err)
	assert.False(t, applied)

	assert.Equal(t, map[string]float64{"noodles": 1}, affinities(t, db, user.ID))
	var stored models.Recipe
	require.NoError(t, db.First(&stored, "id = ?", recipe.ID).Error)
	assert.Equal(t, 1, stored.RatingCount)
}

func TestFeedbackService_Validation(t *testing.T) {
	db, svc, _, _ := setupFeedbackTest(t)
	user := testhelpers.CreateTestUser(t, db)
	recipe := testhelpers.CreateTestRecipe(t, db, "nachos")
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, rate(user.ID, recipe.ID, 0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.SubmitRating(ctx, rate(user.ID, recipe.ID, 6))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.SubmitRating(ctx, rate(user.ID, uuid.New(), 4))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFeedbackService_PoorRatingsArchiveRecipe(t *testing.T) {
	db, svc, archive, _ := setupFeedbackTest(t)
	recipe := testhelpers.CreateTestRecipe(t, db, "burnt toast")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		user := testhelpers.CreateTestUser(t, db)
		_, err := svc.SubmitRating(ctx, rate(user.ID, recipe.ID, 2))
		require.NoError(t, err)
	}

	var live int64
	require.NoError(t, db.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Count(&live).Error)
	assert.Equal(t, int64(0), live)

	var archived models.RecipeArchive
	require.NoError(t, db.First(&archived, "recipe_id = ?", recipe.ID).Error)
	assert.Equal(t, 10, archived.RatingCount)
	assert.Contains(t, archived.Reason, "average rating")
	assert.Equal(t, []string{archived.SnapshotKey}, archive.keys())
}

func TestFeedbackService_AffinityHistory(t *testing.T) {
	db, svc, _, _ := setupFeedbackTest(t)
	user := testhelpers.CreateTestUser(t, db)
	liked := testhelpers.CreateTestRecipe(t, db, "mango salsa", testhelpers.WithIngredients("mango"))
	disliked := testhelpers.CreateTestRecipe(t, db, "liver pate", testhelpers.WithIngredients("liver"))
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, rate(user.ID, disliked.ID, 1))
	require.NoError(t, err)
	_, err = svc.SubmitRating(ctx, rate(user.ID, liked.ID, 5))
	require.NoError(t, err)

	rows, err := svc.AffinityHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "mango", rows[0].Ingredient)
	assert.Equal(t, "liver", rows[1].Ingredient)
}

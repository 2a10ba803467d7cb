package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/testhelpers"
)

func TestNewSQLiteAndMigrate(t *testing.T) {
	db, err := New(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   "file::memory:?cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, RunMigrations(db, zap.NewNop()))
	require.NoError(t, HealthCheck(context.Background(), db))

	profile := models.UserProfile{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		PrimaryGoal:        "weight_loss",
		Appliances:         models.StringSet{"oven", "instant pot"},
		CuisinePreferences: models.StringSet{"italian"},
	}
	require.NoError(t, db.Create(&profile).Error)

	var loaded models.UserProfile
	require.NoError(t, db.First(&loaded, "id = ?", profile.ID).Error)
	assert.Equal(t, models.StringSet{"oven", "instant pot"}, loaded.Appliances)
	assert.Equal(t, models.StringSet{"italian"}, loaded.CuisinePreferences)
	assert.Nil(t, loaded.HabitChangeReadiness)
}

func TestRunMigrationsOnPostgres(t *testing.T) {
	db := testhelpers.StartPostgres(t)

	require.NoError(t, RunMigrations(db, zap.NewNop()))
	assert.True(t, db.Migrator().HasTable(&models.RecipeEmbedding{}))
}

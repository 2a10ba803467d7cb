package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/testhelpers"
)

func TestSeedUsers(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	auth := service.NewAuthService(db, "test-secret", time.Hour)
	profiles := service.NewProfileService(db, nil, zap.NewNop())
	ctx := context.Background()

	created := seedUsers(ctx, auth, profiles, demoUsers, zap.NewNop())
	assert.Equal(t, len(demoUsers), created)

	created = seedUsers(ctx, auth, profiles, demoUsers, zap.NewNop())
	assert.Zero(t, created)

	_, user, err := auth.Login(ctx, "bob.wilson@example.com", demoPassword)
	require.NoError(t, err)
	profile, err := profiles.GetUserProfile(ctx, user.ID.String())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"peanuts", "shellfish"}, profile.Allergies)
	assert.Equal(t, 20, profile.MaxPrepTime)
}

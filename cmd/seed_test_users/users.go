package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/service"
)

const demoPassword = "testpassword123"

type demoUser struct {
	name          string
	email         string
	questionnaire recommend.Questionnaire
}

var demoUsers = []demoUser{
	{
		name:  "John Doe",
		email: "john.doe@example.com",
		questionnaire: recommend.Questionnaire{
			PrimaryGoal:        "weight_loss",
			HealthConditions:   []recommend.ConditionAnswer{{Name: "diabetes", Severity: "moderate"}},
			CookingSkill:       2,
			MaxPrepTime:        30,
			Budget:             "budget",
			HouseholdSize:      1,
			Appliances:         []string{"air_fryer", "stovetop"},
			CuisinePreferences: []string{"mexican"},
			SpiceTolerance:     4,
		},
	},
	{
		name:  "Jane Smith",
		email: "jane.smith@example.com",
		questionnaire: recommend.Questionnaire{
			PrimaryGoal:          "muscle_gain",
			SecondaryGoals:       []string{"general_health"},
			NutrientDeficiencies: []string{"iron"},
			CookingSkill:         4,
			MaxPrepTime:          60,
			Budget:               "moderate",
			HouseholdSize:        2,
			Appliances:           []string{"stovetop", "oven", "wok"},
			CuisinePreferences:   []string{"chinese", "japanese"},
			SpiceTolerance:       3,
		},
	},
	{
		name:  "Bob Wilson",
		email: "bob.wilson@example.com",
		questionnaire: recommend.Questionnaire{
			PrimaryGoal:         "medical_condition",
			HealthConditions:    []recommend.ConditionAnswer{{Name: "heart_disease", Severity: "mild"}},
			Allergies:           []string{"peanuts", "shellfish"},
			DislikedIngredients: []string{"mushroom"},
			CookingSkill:        1,
			MaxPrepTime:         20,
			Budget:              "budget",
			HouseholdSize:       4,
			Appliances:          []string{"slow_cooker", "stovetop"},
			SpiceTolerance:      1,
		},
	},
	{
		name:  "Alice Cooper",
		email: "alice.cooper@example.com",
		questionnaire: recommend.Questionnaire{
			PrimaryGoal:          "anti_inflammatory",
			NutrientDeficiencies: []string{"vitamin_d", "omega3"},
			CookingSkill:         5,
			MaxPrepTime:          90,
			Budget:               "premium",
			HouseholdSize:        2,
			CuisinePreferences:   []string{"indian", "thai", "middle_eastern"},
			SpiceTolerance:       5,
			HealthConditions:     []recommend.ConditionAnswer{{Name: "ibs"}},
			HabitChangeReadiness: []string{"meal_prep"},
		},
	},
}

// seedUsers registers each demo user that does not exist yet and submits
// their questionnaire.
func seedUsers(ctx context.Context, auth service.IAuthService, profiles service.IProfileService, users []demoUser, logger *zap.Logger) int {
	created := 0
	for _, u := range users {
		_, user, err := auth.Register(ctx, u.name, u.email, demoPassword)
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Info("Demo user already exists", zap.String("email", u.email))
			continue
		}
		if err != nil {
			logger.Error("Failed to register demo user", zap.String("email", u.email), zap.Error(err))
			continue
		}
		if _, err := profiles.SubmitQuestionnaire(ctx, user.ID, u.questionnaire); err != nil {
			logger.Error("Failed to submit questionnaire", zap.String("email", u.email), zap.Error(err))
			continue
		}
		created++
	}
	return created
}

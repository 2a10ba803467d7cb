package testhelpers

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/models"
)

// TestPassword is the plain-text password of users made by CreateTestUser.
const TestPassword = "testpassword123"

// CreateTestUser creates a user whose password is TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	id := uuid.New()
	user := &models.User{
		ID:           id,
		Name:         "Test User",
		Email:        fmt.Sprintf("testuser+%s@example.com", id),
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// RecipeOption customises a recipe made by CreateTestRecipe.
type RecipeOption func(*models.Recipe)

func WithIngredients(names ...string) RecipeOption {
	return func(r *models.Recipe) {
		r.Ingredients = nil
		for i, n := range names {
			r.Ingredients = append(r.Ingredients, models.RecipeIngredient{Position: i, Name: n})
		}
	}
}

func WithTiming(prep, cook int) RecipeOption {
	return func(r *models.Recipe) {
		r.PrepTime = prep
		r.CookTime = cook
		r.TotalTime = prep + cook
	}
}

func WithComplexity(c int) RecipeOption {
	return func(r *models.Recipe) { r.Complexity = c }
}

func WithCuisine(c string) RecipeOption {
	return func(r *models.Recipe) { r.Cuisine = c }
}

func WithAppliances(names ...string) RecipeOption {
	return func(r *models.Recipe) { r.RequiredAppliances = names }
}

func WithTags(category string, tags ...string) RecipeOption {
	return func(r *models.Recipe) {
		for _, tag := range tags {
			r.Tags = append(r.Tags, models.RecipeTag{Tag: tag, Category: category})
		}
	}
}

func WithNutrition(n models.NutritionFacts) RecipeOption {
	return func(r *models.Recipe) { r.Nutrition = n }
}

// CreateTestRecipe creates a recipe named name with two ingredients and
// two steps unless options say otherwise.
func CreateTestRecipe(t *testing.T, db *gorm.DB, name string, opts ...RecipeOption) *models.Recipe {
	t.Helper()

	recipe := &models.Recipe{
		ID:          uuid.New(),
		Name:        name,
		Description: "A test recipe",
		Servings:    2,
		Complexity:  2,
		Source:      "test",
		Ingredients: []models.RecipeIngredient{
			{Position: 0, Name: "ingredient1"},
			{Position: 1, Name: "ingredient2"},
		},
		Steps: []models.RecipeStep{
			{Position: 0, Instruction: "step1"},
			{Position: 1, Instruction: "step2"},
		},
	}
	WithTiming(10, 20)(recipe)
	for _, opt := range opts {
		opt(recipe)
	}

	if err := db.Create(recipe).Error; err != nil {
		t.Fatalf("failed to create test recipe: %v", err)
	}
	return recipe
}

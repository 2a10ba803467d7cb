// Package integration drives the assembled application end to end over
// HTTP, with the feedback worker running in process.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/app"
	"github.com/pageza/flavor-monk/backend/internal/database"
	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/server"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &config.Config{
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              "0",
			ShutdownTimeout:   time.Second,
			AllowedOrigins:    []string{"http://localhost:3000"},
			RateLimitRequests: 1000,
			RateLimitWindow:   time.Minute,
		},
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Redis: config.RedisConfig{Disabled: true},
		Auth:  config.AuthConfig{JWTSecret: "integration-secret", TokenTTL: time.Hour},
		Ranking: config.RankingConfig{
			StoreTimeout:  3 * time.Second,
			CacheTTL:      time.Minute,
			CacheCapacity: 100,
			Weights:       recommend.DefaultWeights(),
		},
		LLM: config.LLMConfig{
			// Nothing listens here, so chat falls back to canned replies.
			OllamaURL:         "http://127.0.0.1:1",
			OllamaModel:       "llama3.2",
			EmbeddingProvider: "hashing",
			Timeout:           2 * time.Second,
			CacheTTL:          time.Minute,
		},
		Queue: config.QueueConfig{
			Name:              "test:feedback",
			VisibilityTimeout: time.Minute,
			PollInterval:      10 * time.Millisecond,
			MaxAttempts:       3,
		},
		Archive: config.ArchiveConfig{Provider: "local", LocalDir: t.TempDir()},
	}
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func TestRecommendationFeedbackLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	a, err := app.New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, database.RunMigrations(a.DB, zap.NewNop()))

	srv := server.NewServer(cfg.Server, a.Dependencies(), a.Metrics, zap.NewNop())
	c := &client{t: t, handler: srv.Handler()}

	nutrition := models.NutritionFacts{
		Calories: 450, Protein: 20, Carbs: 40, Fat: 12, SaturatedFat: 3,
		Sugar: 5, Fiber: 6, Sodium: 500, Omega3: 0.5, GlycemicIndex: 45,
	}
	tacos, err := a.Recipes.CreateRecipe(ctx, &models.Recipe{
		Name: "chicken tacos", Cuisine: "Mexican", PrepTime: 10, CookTime: 15, Servings: 2, Complexity: 2,
		RequiredAppliances: models.StringSet{"stovetop"},
		Nutrition:          nutrition,
		Ingredients: []models.RecipeIngredient{
			{Position: 0, Name: "chicken"}, {Position: 1, Name: "corn tortilla"}, {Position: 2, Name: "lime"},
		},
	})
	require.NoError(t, err)
	_, err = a.Recipes.CreateRecipe(ctx, &models.Recipe{
		Name: "chicken satay tacos", Cuisine: "Mexican", PrepTime: 10, CookTime: 15, Servings: 2, Complexity: 2,
		Nutrition: nutrition,
		Ingredients: []models.RecipeIngredient{
			{Position: 0, Name: "chicken"}, {Position: 1, Name: "peanut butter"},
		},
	})
	require.NoError(t, err)

	// Register and fill in the questionnaire.
	w := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "Integration", "email": "flow@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var auth types.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	c.token = auth.Token

	w = c.do(http.MethodPost, "/api/v1/questionnaire", map[string]interface{}{
		"primary_goal":        "weight_loss",
		"allergies":           []string{"Peanut"},
		"cooking_skill":       3,
		"max_prep_time":       30,
		"appliances":          []string{"Stovetop"},
		"cuisine_preferences": []string{"Mexican"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The allergen recipe never comes back.
	w = c.do(http.MethodPost, "/api/v1/recommendations", map[string]interface{}{"query": "chicken tacos"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var recs types.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.NotEmpty(t, recs.Candidates)
	for _, cand := range recs.Candidates {
		assert.NotEqual(t, "chicken satay tacos", cand.Recipe.Name)
	}
	assert.Equal(t, tacos.ID.String(), recs.Candidates[0].Recipe.ID)

	// Feedback is accepted now and applied by the worker.
	w = c.do(http.MethodPost, "/api/v1/interactions", map[string]interface{}{
		"recipe_id": tacos.ID, "viewed": true, "started": true, "completed": true,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	w = c.do(http.MethodPost, "/api/v1/recipes/"+tacos.ID.String()+"/ratings", map[string]interface{}{"rating": 5})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	workerDone := make(chan error, 1)
	go func() { workerDone <- a.Worker().Run(ctx) }()

	require.Eventually(t, func() bool {
		var recipe models.Recipe
		if err := a.DB.First(&recipe, "id = ?", tacos.ID).Error; err != nil {
			return false
		}
		return recipe.RatingCount == 1 && recipe.CompletedCount == 1
	}, 5*time.Second, 20*time.Millisecond)

	var interactions int64
	require.NoError(t, a.DB.Model(&models.Interaction{}).Where("recipe_id = ?", tacos.ID).Count(&interactions).Error)
	assert.EqualValues(t, 1, interactions)

	w = c.do(http.MethodGet, "/api/v1/profile/affinities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var affinities struct {
		Affinities []models.IngredientAffinity `json:"affinities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &affinities))
	scores := make(map[string]float64)
	for _, af := range affinities.Affinities {
		scores[af.Ingredient] = af.Score
	}
	assert.Greater(t, scores["chicken"], 0.0)

	// Chat still answers when no model is reachable.
	w = c.do(http.MethodPost, "/api/v1/chat", map[string]string{"message": "suggest a recipe with chicken"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var chat types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))
	assert.Equal(t, llm.SourceFallback, chat.Source)
	assert.Equal(t, llm.QueryRecipe, chat.QueryType)
	assert.NotEmpty(t, chat.Suggestions)

	w = c.do(http.MethodGet, "/metrics", nil)
	assert.Contains(t, w.Body.String(), "flavormonk_worker_tasks_total")

	cancel()
	select {
	case err := <-workerDone:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/api"
	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/middleware"
	"github.com/pageza/flavor-monk/backend/internal/mocks"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/queue"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/testhelpers"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	auth    *service.AuthService
	recipes *service.RecipeService
	quality *service.QualityService
	queue   *queue.MemoryQueue
	kojo    *mocks.MockKojoService
	user    *models.User
	token   string
}

func setupTestServer(t *testing.T) *testServer {
	db := testhelpers.NewSQLiteDB(t)
	logger := zap.NewNop()

	auth := service.NewAuthService(db, "test-secret", time.Hour)
	profiles := service.NewProfileService(db, nil, logger)
	recipes := service.NewRecipeService(db, logger)
	quality := service.NewQualityService(db, service.NewLocalArchive(t.TempDir()), service.DefaultQualityThresholds(), logger)
	feedback := service.NewFeedbackService(db, quality, nil, logger)
	retriever := recommend.NewHybridRetriever(recipes, nil, recommend.RetrieverConfig{}, nil, logger)
	engine := recommend.NewEngine(profiles, retriever, recommend.WithLogger(logger))
	q := queue.NewMemoryQueue(queue.Options{})
	kojo := &mocks.MockKojoService{}

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger))
	api.RegisterRoutes(router, api.Dependencies{
		Auth:     auth,
		Profiles: profiles,
		Recipes:  recipes,
		Quality:  quality,
		Feedback: feedback,
		Ranker:   engine,
		Kojo:     kojo,
		Queue:    q,
		HealthChecks: map[string]api.HealthCheck{
			"database": func(ctx context.Context) error { return nil },
		},
	})

	user := testhelpers.CreateTestUser(t, db)
	token, err := auth.GenerateToken(user.ID)
	require.NoError(t, err)

	return &testServer{router: router, auth: auth, recipes: recipes, quality: quality, queue: q, kojo: kojo, user: user, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func questionnaireBody() map[string]interface{} {
	return map[string]interface{}{
		"primary_goal":         "weight_loss",
		"allergies":            []string{"Peanuts"},
		"disliked_ingredients": []string{"Cilantro"},
		"cooking_skill":        3,
		"max_prep_time":        45,
		"appliances":           []string{"stovetop"},
		"cuisine_preferences":  []string{"Mexican"},
	}
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestHealth_FailingDependency(t *testing.T) {
	router := gin.New()
	handler := api.NewHealthHandler(map[string]api.HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	router.GET("/health", handler.Check)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"connection refused"`)
}

func TestAuthRoutes(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "password123",
	}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered types.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "ada@example.com", registered.User.Email)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "password123",
	}, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "Bad", "email": "not-an-email", "password": "password123",
	}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
	assert.Contains(t, resp.Details["details"], "email")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/api/v1/profile", "/api/v1/recipes", "/api/v1/profile/history"} {
		w := s.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestProfileRoutes(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/profile", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/questionnaire", questionnaireBody(), true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/profile", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var profile recommend.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, recommend.GoalWeightLoss, profile.PrimaryGoal)
	assert.Equal(t, 45, profile.MaxPrepTime)

	w = s.do(t, http.MethodGet, "/api/v1/profile/history", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"profiles"`)

	w = s.do(t, http.MethodGet, "/api/v1/profile/affinities", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cilantro")
}

func TestSubmitQuestionnaire_Invalid(t *testing.T) {
	s := setupTestServer(t)

	body := questionnaireBody()
	body["cooking_skill"] = 9
	w := s.do(t, http.MethodPost, "/api/v1/questionnaire", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/questionnaire", "not an object", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendations(t *testing.T) {
	s := setupTestServer(t)

	t.Run("without profile", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/recommendations", map[string]string{"query": "tacos"}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing query", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/recommendations", map[string]string{}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("with profile", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/questionnaire", questionnaireBody(), true)
		require.Equal(t, http.StatusCreated, w.Code)

		w = s.do(t, http.MethodPost, "/api/v1/recommendations", map[string]interface{}{
			"query": "quick chicken tacos", "intent_strength": 0.8,
		}, true)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp types.RecommendationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "quick chicken tacos", resp.Query)
	})

	t.Run("intent out of range", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/recommendations", map[string]interface{}{
			"query": "tacos", "intent_strength": 1.5,
		}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRecordInteraction_Enqueues(t *testing.T) {
	s := setupTestServer(t)
	recipeID := uuid.New()

	w := s.do(t, http.MethodPost, "/api/v1/interactions", map[string]interface{}{
		"recipe_id": recipeID, "started": true, "completed": true,
	}, true)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted types.AcceptedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.Equal(t, "accepted", accepted.Status)
	assert.Equal(t, 1, s.queue.Len())

	task, err := s.queue.Reserve(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, accepted.ID, task.ID)
	assert.Equal(t, queue.TypeInteractionRecorded, task.Type)

	var ev service.InteractionEvent
	require.NoError(t, task.Decode(&ev))
	assert.Equal(t, s.user.ID.String(), ev.UserID)
	assert.Equal(t, recipeID.String(), ev.RecipeID)
	assert.True(t, ev.Started)
	assert.True(t, ev.Completed)
	assert.False(t, ev.MadeAgain)
}

func TestRecordInteraction_Invalid(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/interactions", map[string]interface{}{"started": true}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/interactions", map[string]interface{}{"recipe_id": "nope"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, s.queue.Len())
}

func TestSubmitRating(t *testing.T) {
	s := setupTestServer(t)
	recipeID := uuid.New()

	w := s.do(t, http.MethodPost, "/api/v1/recipes/"+recipeID.String()+"/ratings",
		map[string]interface{}{"rating": 4, "notes": "tasty"}, true)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	task, err := s.queue.Reserve(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, queue.TypeRatingSubmitted, task.Type)
	var ev service.RatingEvent
	require.NoError(t, task.Decode(&ev))
	assert.Equal(t, 4, ev.Rating)
	assert.Equal(t, "tasty", ev.Notes)
	assert.Equal(t, recipeID.String(), ev.RecipeID)

	tests := []struct {
		name string
		path string
		body map[string]interface{}
	}{
		{"rating too high", "/api/v1/recipes/" + recipeID.String() + "/ratings", map[string]interface{}{"rating": 6}},
		{"missing rating", "/api/v1/recipes/" + recipeID.String() + "/ratings", map[string]interface{}{}},
		{"bad recipe id", "/api/v1/recipes/not-a-uuid/ratings", map[string]interface{}{"rating": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Zero(t, s.queue.Len())
}

func TestRecipeRoutes(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	for _, name := range []string{"Chicken Tinga", "Veggie Chili", "Chicken Soup"} {
		_, err := s.recipes.CreateRecipe(ctx, &models.Recipe{
			Name:        name,
			Description: "weeknight dinner",
			Servings:    2,
			Complexity:  2,
			Ingredients: []models.RecipeIngredient{{Name: "onion"}},
		})
		require.NoError(t, err)
	}

	w := s.do(t, http.MethodGet, "/api/v1/recipes?q=chicken&limit=1", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list types.RecipeListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.EqualValues(t, 2, list.Total)
	assert.Len(t, list.Recipes, 1)
	assert.Equal(t, 1, list.Limit)

	w = s.do(t, http.MethodGet, "/api/v1/recipes/"+list.Recipes[0].ID.String(), nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/recipes/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/recipes?limit=-1", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/recipes/flagged", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	var flagged struct {
		Recipes []models.Recipe `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flagged))
	assert.Empty(t, flagged.Recipes)
}

func TestArchivedRecipeRoute(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	recipe, err := s.recipes.CreateRecipe(ctx, &models.Recipe{Name: "Soggy Fries", Complexity: 1})
	require.NoError(t, err)
	require.NoError(t, s.quality.Archive(ctx, recipe, "completion rate 0.20 below 0.50"))

	w := s.do(t, http.MethodGet, "/api/v1/recipes/archived/"+recipe.ID.String(), nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var archived service.ArchivedRecipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archived))
	assert.Equal(t, recipe.ID, archived.RecipeID)
	assert.Equal(t, "completion rate 0.20 below 0.50", archived.Reason)
	assert.Contains(t, string(archived.Snapshot), "Soggy Fries")
	assert.Empty(t, archived.DownloadURL)

	w = s.do(t, http.MethodGet, "/api/v1/recipes/"+recipe.ID.String(), nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/recipes/archived/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChat(t *testing.T) {
	s := setupTestServer(t)
	s.kojo.On("Chat", mock.Anything, s.user.ID.String(), "what should I cook?").Return(&service.ChatReply{
		Message:   "Try a quick stir fry.",
		QueryType: llm.QueryRecipe,
		Source:    llm.SourceLocal,
	}, nil).Once()
	s.kojo.On("Chat", mock.Anything, s.user.ID.String(), "hello").Return(nil, errors.New("boom")).Once()

	w := s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "what should I cook?"}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Try a quick stir fry.", resp.Message)
	assert.Equal(t, llm.QueryRecipe, resp.QueryType)

	w = s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "hello"}, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeError(t, w).Error)
	s.kojo.AssertExpectations(t)
}

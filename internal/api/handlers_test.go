package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/api"
	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/middleware"
	"github.com/pageza/flavor-monk/backend/internal/mocks"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

// withUser stands in for the auth middleware.
func withUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

func newHandlerRouter(userID uuid.UUID) (*gin.Engine, *gin.RouterGroup) {
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	group := router.Group("/api/v1", withUser(userID))
	return router, group
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecommendationHandler_DefaultIntent(t *testing.T) {
	userID := uuid.New()
	ranker := &mocks.MockRanker{}
	ranker.On("Rank", mock.Anything, "pasta", userID.String(), 0.5).
		Return([]recommend.RankedCandidate{{Recipe: recommend.Recipe{Name: "pesto pasta"}, PersonalizedScore: 0.8}}, nil)

	router, group := newHandlerRouter(userID)
	api.NewRecommendationHandler(ranker).RegisterRoutes(group)

	w := post(router, "/api/v1/recommendations", `{"query":"pasta"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pesto pasta")
	ranker.AssertExpectations(t)
}

func TestRecommendationHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no results", apperrors.ErrNoResultsAvailable, http.StatusServiceUnavailable, "NO_RESULTS_AVAILABLE"},
		{"bad input", apperrors.Input("query must not be blank"), http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := uuid.New()
			ranker := &mocks.MockRanker{}
			ranker.On("Rank", mock.Anything, "soup", userID.String(), 0.2).Return(nil, tt.err)

			router, group := newHandlerRouter(userID)
			api.NewRecommendationHandler(ranker).RegisterRoutes(group)

			w := post(router, "/api/v1/recommendations", `{"query":"soup","intent_strength":0.2}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestFeedbackHandler_QueueUnavailable(t *testing.T) {
	q := &mocks.MockQueue{}
	q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("redis: connection refused"))

	router, group := newHandlerRouter(uuid.New())
	api.NewFeedbackHandler(q).RegisterRoutes(group)

	w := post(router, "/api/v1/interactions", `{"recipe_id":"`+uuid.NewString()+`","viewed":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "BACKEND_UNAVAILABLE")
	assert.NotContains(t, w.Body.String(), "connection refused")
	q.AssertExpectations(t)
}

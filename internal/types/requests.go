package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

// TokenClaims are the claims of an access token. The subject is the user ID
// as well, but handlers read UserID.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RecommendationRequest asks for a ranking. IntentStrength defaults to 0.5.
type RecommendationRequest struct {
	Query          string   `json:"query" binding:"required"`
	IntentStrength *float64 `json:"intent_strength"`
}

type RecommendationResponse struct {
	Query      string                      `json:"query"`
	Candidates []recommend.RankedCandidate `json:"candidates"`
}

type InteractionRequest struct {
	RecipeID uuid.UUID `json:"recipe_id" binding:"required"`
	recommend.InteractionFlags
}

type RatingRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Notes  string `json:"notes" binding:"max=2000"`
}

// AcceptedResponse acknowledges work handed to the background worker.
type AcceptedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ChatRequest struct {
	Message string `json:"message" binding:"required,max=500"`
}

type ChatResponse struct {
	Message     string                      `json:"message"`
	QueryType   llm.QueryType               `json:"query_type"`
	Source      llm.Source                  `json:"source"`
	Suggestions []recommend.RankedCandidate `json:"suggestions,omitempty"`
}

type RecipeListResponse struct {
	Recipes []models.Recipe `json:"recipes"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

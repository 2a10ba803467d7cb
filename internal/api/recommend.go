package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

const defaultIntentStrength = 0.5

type RecommendationHandler struct {
	ranker service.Ranker
}

func NewRecommendationHandler(ranker service.Ranker) *RecommendationHandler {
	return &RecommendationHandler{ranker: ranker}
}

func (h *RecommendationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/recommendations", h.Recommend)
}

// Recommend ranks recipes for the query against the caller's profile.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.RecommendationRequest
	if !bindJSON(c, &req) {
		return
	}
	intent := defaultIntentStrength
	if req.IntentStrength != nil {
		intent = *req.IntentStrength
	}

	ranked, err := h.ranker.Rank(c.Request.Context(), req.Query, userID.String(), intent)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.RecommendationResponse{Query: req.Query, Candidates: ranked})
}

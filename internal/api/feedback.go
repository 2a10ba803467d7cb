package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/queue"
	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

const statusAccepted = "accepted"

// FeedbackHandler accepts interactions and ratings and leaves applying
// them to the worker.
type FeedbackHandler struct {
	queue queue.Queue
}

func NewFeedbackHandler(q queue.Queue) *FeedbackHandler {
	return &FeedbackHandler{queue: q}
}

func (h *FeedbackHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/interactions", h.RecordInteraction)
	router.POST("/recipes/:id/ratings", h.SubmitRating)
}

func (h *FeedbackHandler) RecordInteraction(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.InteractionRequest
	if !bindJSON(c, &req) {
		return
	}

	ev := service.InteractionEvent{
		ID:               uuid.NewString(),
		UserID:           userID.String(),
		RecipeID:         req.RecipeID.String(),
		OccurredAt:       time.Now().UTC(),
		InteractionFlags: req.InteractionFlags,
	}
	h.enqueue(c, ev.ID, queue.TypeInteractionRecorded, ev)
}

func (h *FeedbackHandler) SubmitRating(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recipeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.RatingRequest
	if !bindJSON(c, &req) {
		return
	}

	ev := service.RatingEvent{
		ID:         uuid.NewString(),
		UserID:     userID.String(),
		RecipeID:   recipeID.String(),
		Rating:     req.Rating,
		Notes:      req.Notes,
		OccurredAt: time.Now().UTC(),
	}
	h.enqueue(c, ev.ID, queue.TypeRatingSubmitted, ev)
}

func (h *FeedbackHandler) enqueue(c *gin.Context, id, taskType string, payload interface{}) {
	task, err := queue.NewTaskWithID(id, taskType, payload)
	if err != nil {
		_ = c.Error(apperrors.Internal("failed to encode event", err))
		return
	}
	if err := h.queue.Enqueue(c.Request.Context(), task); err != nil {
		_ = c.Error(apperrors.Unavailable("queue", err))
		return
	}
	c.JSON(http.StatusAccepted, types.AcceptedResponse{ID: id, Status: statusAccepted})
}

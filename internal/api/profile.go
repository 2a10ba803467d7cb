package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/service"
)

type ProfileHandler struct {
	profileService  service.IProfileService
	feedbackService service.IFeedbackService
}

func NewProfileHandler(profileService service.IProfileService, feedbackService service.IFeedbackService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, feedbackService: feedbackService}
}

func (h *ProfileHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/questionnaire", h.SubmitQuestionnaire)

	profile := router.Group("/profile")
	{
		profile.GET("", h.GetProfile)
		profile.GET("/history", h.GetProfileHistory)
		profile.GET("/affinities", h.GetAffinities)
	}
}

// SubmitQuestionnaire stores new answers and returns the resulting profile.
func (h *ProfileHandler) SubmitQuestionnaire(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var q recommend.Questionnaire
	if !bindJSON(c, &q) {
		return
	}

	profile, err := h.profileService.SubmitQuestionnaire(c.Request.Context(), userID, q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	profile, err := h.profileService.GetUserProfile(c.Request.Context(), userID.String())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) GetProfileHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	history, err := h.profileService.GetProfileHistory(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": history})
}

func (h *ProfileHandler) GetAffinities(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	affinities, err := h.feedbackService.AffinityHistory(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affinities": affinities})
}

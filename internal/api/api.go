// Package api holds the HTTP handlers of the Flavor Monk API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/middleware"
	"github.com/pageza/flavor-monk/backend/internal/queue"
	"github.com/pageza/flavor-monk/backend/internal/service"
)

// Dependencies are the services the handlers call.
type Dependencies struct {
	Auth         service.IAuthService
	Profiles     service.IProfileService
	Recipes      service.IRecipeService
	Quality      service.IQualityService
	Feedback     service.IFeedbackService
	Ranker       service.Ranker
	Kojo         service.IKojoService
	Queue        queue.Queue
	HealthChecks map[string]HealthCheck
	// RateLimiter, when set, guards every authenticated route.
	RateLimiter *middleware.RateLimiter
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	health := NewHealthHandler(deps.HealthChecks)
	router.GET("/health", health.Check)
	router.GET("/api/health", health.Check)

	v1 := router.Group("/api/v1")
	NewAuthHandler(deps.Auth).RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Auth))
	if deps.RateLimiter != nil {
		protected.Use(deps.RateLimiter.RateLimitMiddleware())
	}

	NewProfileHandler(deps.Profiles, deps.Feedback).RegisterRoutes(protected)
	NewRecommendationHandler(deps.Ranker).RegisterRoutes(protected)
	NewFeedbackHandler(deps.Queue).RegisterRoutes(protected)
	NewRecipeHandler(deps.Recipes, deps.Quality).RegisterRoutes(protected)
	NewChatHandler(deps.Kojo).RegisterRoutes(protected)
}

// currentUser returns the authenticated user, failing the request when
// there is none.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		middleware.WriteError(c, apperrors.New(apperrors.CodeUnauthorized, "user not authenticated"))
	}
	return id, ok
}

// bindJSON decodes the body into req and reports malformed or invalid
// bodies as input errors.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Input("malformed request body").WithCause(err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	appErr := apperrors.Input("invalid request").WithCause(err)
	appErr.Details = "invalid fields: " + strings.Join(fields, ", ")
	return appErr
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(apperrors.Input("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Check returns the health status of the API and its dependencies.
func (h *HealthHandler) Check(c *gin.Context) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"message":      "Flavor Monk API is running",
		"dependencies": results,
	})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type RecipeHandler struct {
	recipeService  service.IRecipeService
	qualityService service.IQualityService
}

func NewRecipeHandler(recipeService service.IRecipeService, qualityService service.IQualityService) *RecipeHandler {
	return &RecipeHandler{recipeService: recipeService, qualityService: qualityService}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/flagged", h.FlaggedRecipes)
		recipes.GET("/archived/:id", h.ArchivedRecipe)
		recipes.GET("/:id", h.GetRecipe)
	}
}

// ListRecipes handles GET /recipes?q=&cuisine=&tag=&limit=&offset=
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	opts := service.ListOptions{
		Query:   c.Query("q"),
		Cuisine: c.Query("cuisine"),
		Tag:     c.Query("tag"),
		Limit:   limit,
		Offset:  offset,
	}
	recipes, total, err := h.recipeService.ListRecipes(c.Request.Context(), opts)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.RecipeListResponse{Recipes: recipes, Total: total, Limit: limit, Offset: offset})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// FlaggedRecipes lists recipes waiting for manual review.
func (h *RecipeHandler) FlaggedRecipes(c *gin.Context) {
	recipes, err := h.qualityService.FlaggedRecipes(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// ArchivedRecipe returns the archive record and snapshot of a removed recipe.
func (h *RecipeHandler) ArchivedRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	archived, err := h.qualityService.ArchivedRecipe(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, archived)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Input("%s must be a non-negative integer", name)
	}
	return n, nil
}

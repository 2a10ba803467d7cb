package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// nutrientColumns maps the nutrients a filter may cap onto recipe columns.
var nutrientColumns = map[recommend.Nutrient]string{
	recommend.NutrientCalories:      "nutrition_calories",
	recommend.NutrientCarbs:         "nutrition_carbs",
	recommend.NutrientSugar:         "nutrition_sugar",
	recommend.NutrientSaturatedFat:  "nutrition_saturated_fat",
	recommend.NutrientSodium:        "nutrition_sodium",
	recommend.NutrientGlycemicIndex: "nutrition_glycemic_index",
}

// RecipeIndexer keeps the semantic index in step with the catalog.
type RecipeIndexer interface {
	IndexRecipe(ctx context.Context, recipe *models.Recipe) error
}

// RecipeService handles recipe operations
type RecipeService struct {
	db      *gorm.DB
	indexer RecipeIndexer
	logger  *zap.Logger
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, logger *zap.Logger) *RecipeService {
	return &RecipeService{db: db, logger: logger.Named("recipes")}
}

// SetIndexer makes CreateRecipe index new recipes.
func (s *RecipeService) SetIndexer(indexer RecipeIndexer) {
	s.indexer = indexer
}

func (s *RecipeService) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}

// CreateRecipe stores a recipe with its ingredients, steps and tags.
func (s *RecipeService) CreateRecipe(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	if strings.TrimSpace(recipe.Name) == "" {
		return nil, apperrors.Input("recipe name is required")
	}
	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}
	normalizeRecipe(recipe)

	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	if s.indexer != nil {
		if err := s.indexer.IndexRecipe(ctx, recipe); err != nil {
			s.logger.Warn("failed to index recipe",
				zap.String("recipe_id", recipe.ID.String()), zap.Error(err))
		}
	}
	return recipe, nil
}

// GetRecipe retrieves a recipe by ID
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.preload(s.db.WithContext(ctx)).Preload("Steps", orderByPosition).First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("recipe")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// ListOptions narrow a catalog listing.
type ListOptions struct {
	Query   string
	Cuisine string
	Tag     string
	Limit   int
	Offset  int
}

// ListRecipes pages through the catalog, best rated first.
func (s *RecipeService) ListRecipes(ctx context.Context, opts ListOptions) ([]models.Recipe, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})
	if opts.Query != "" {
		like := "%" + strings.ToLower(opts.Query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if opts.Cuisine != "" {
		q = q.Where("cuisine = ?", recommend.NormalizeName(opts.Cuisine))
	}
	if opts.Tag != "" {
		q = q.Where("id IN (?)", s.db.Model(&models.RecipeTag{}).Select("recipe_id").
			Where("tag = ?", recommend.NormalizeName(opts.Tag)))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var recipes []models.Recipe
	err := s.preload(q).Order("average_rating DESC").Order("name").Order("id").
		Limit(limit).Offset(opts.Offset).Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// FindRecipes implements recommend.RecipeStore.
func (s *RecipeService) FindRecipes(ctx context.Context, filter recommend.RecipeFilter) ([]recommend.Recipe, error) {
	q := s.scope(ctx, filter)
	// Appliance sets are compared in SQL only where arrays are native.
	inMemory := len(filter.Appliances) > 0 && !s.isPostgres()
	if !inMemory {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}

	var recipes []models.Recipe
	if err := s.preload(q).Order("average_rating DESC").Order("id").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to find recipes: %w", err)
	}

	out := toCandidates(recipes)
	if !inMemory {
		return out, nil
	}

	kept := out[:0]
	for _, r := range out {
		if appliancesWithin(r.RequiredAppliances, filter.Appliances) {
			kept = append(kept, r)
		}
	}
	return page(kept, filter.Offset, filter.Limit), nil
}

// scope applies every filter constraint except paging.
func (s *RecipeService) scope(ctx context.Context, f recommend.RecipeFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})
	if f.MaxPrepTime > 0 {
		q = q.Where("prep_time <= ?", f.MaxPrepTime)
	}
	if f.MaxCookTime > 0 {
		q = q.Where("cook_time <= ?", f.MaxCookTime)
	}
	if f.MaxComplexity > 0 {
		q = q.Where("complexity <= ?", f.MaxComplexity)
	}
	if len(f.Cuisines) > 0 {
		q = q.Where("cuisine IN ?", f.Cuisines)
	}
	if len(f.Tags) > 0 {
		q = q.Where("id IN (?)", s.db.Model(&models.RecipeTag{}).Select("recipe_id").Where("tag IN ?", f.Tags))
	}
	if len(f.Appliances) > 0 && s.isPostgres() {
		q = q.Where("required_appliances <@ ?::text[]", pq.StringArray(f.Appliances))
	}

	nutrients := make([]string, 0, len(f.NutrientCeilings))
	for n := range f.NutrientCeilings {
		nutrients = append(nutrients, string(n))
	}
	sort.Strings(nutrients)
	for _, n := range nutrients {
		col, ok := nutrientColumns[recommend.Nutrient(n)]
		if !ok {
			continue
		}
		q = q.Where(col+" <= ?", f.NutrientCeilings[recommend.Nutrient(n)])
	}

	for _, ing := range f.ExcludeIngredients {
		q = q.Where("NOT EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = recipes.id AND ri.name LIKE ?)",
			"%"+recommend.IngredientStem(ing)+"%")
	}
	return q
}

func (s *RecipeService) preload(q *gorm.DB) *gorm.DB {
	return q.Preload("Ingredients", orderByPosition).Preload("Tags")
}

// recipesByID loads recipes keeping the order of ids and skipping missing ones.
func (s *RecipeService) recipesByID(ctx context.Context, ids []uuid.UUID) ([]models.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recipes []models.Recipe
	if err := s.preload(s.db.WithContext(ctx)).Where("id IN ?", ids).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}
	byID := make(map[uuid.UUID]models.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	out := make([]models.Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecipeNames returns the names of the given recipes, keyed by id.
func (s *RecipeService) RecipeNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var rows []models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipe names: %w", err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func appliancesWithin(required, options []string) bool {
	for _, a := range required {
		found := false
		for _, o := range options {
			if recommend.NormalizeName(a) == recommend.NormalizeName(o) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func page(rs []recommend.Recipe, offset, limit int) []recommend.Recipe {
	if offset >= len(rs) {
		return []recommend.Recipe{}
	}
	rs = rs[offset:]
	if limit > 0 && limit < len(rs) {
		rs = rs[:limit]
	}
	return rs
}

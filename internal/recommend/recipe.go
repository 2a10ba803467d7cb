package recommend

import "context"

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// NutritionFacts are per-serving values. A zero value means the recipe has
// no nutrition data.
type NutritionFacts struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Carbs         float64 `json:"carbs"`
	Fat           float64 `json:"fat"`
	SaturatedFat  float64 `json:"saturated_fat"`
	Sugar         float64 `json:"sugar"`
	Fiber         float64 `json:"fiber"`
	Sodium        float64 `json:"sodium"`
	Omega3        float64 `json:"omega3"`
	GlycemicIndex float64 `json:"glycemic_index"`
}

// Value returns the measured value of n, if the recipe carries it.
func (f NutritionFacts) Value(n Nutrient) (float64, bool) {
	if f == (NutritionFacts{}) {
		return 0, false
	}
	switch n {
	case NutrientCalories:
		return f.Calories, true
	case NutrientProtein:
		return f.Protein, true
	case NutrientCarbs:
		return f.Carbs, true
	case NutrientSaturatedFat:
		return f.SaturatedFat, true
	case NutrientSugar:
		return f.Sugar, true
	case NutrientFiber:
		return f.Fiber, true
	case NutrientSodium:
		return f.Sodium, true
	case NutrientOmega3:
		return f.Omega3, true
	case NutrientGlycemicIndex:
		return f.GlycemicIndex, f.GlycemicIndex > 0
	}
	return 0, false
}

// Recipe is a retrieval candidate.
type Recipe struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Cuisine            string         `json:"cuisine,omitempty"`
	PrepTime           int            `json:"prep_time"`
	CookTime           int            `json:"cook_time"`
	TotalTime          int            `json:"total_time"`
	Servings           int            `json:"servings"`
	Complexity         int            `json:"complexity"`
	CostTier           string         `json:"cost_tier,omitempty"`
	RequiredAppliances []string       `json:"required_appliances,omitempty"`
	Ingredients        []Ingredient   `json:"ingredients,omitempty"`
	Nutrition          NutritionFacts `json:"nutrition"`
	Tags               []string       `json:"tags,omitempty"`
	AverageRating      float64        `json:"average_rating"`
	RatingCount        int            `json:"rating_count"`
	CompletionRate     float64        `json:"completion_rate"`
}

// Minutes is the total time, falling back to prep plus cook.
func (r Recipe) Minutes() int {
	if r.TotalTime > 0 {
		return r.TotalTime
	}
	return r.PrepTime + r.CookTime
}

// HasTag reports whether the recipe carries tag.
func (r Recipe) HasTag(tag string) bool {
	return containsName(r.Tags, tag)
}

// ContainsIngredient reports whether any ingredient name contains name,
// ignoring plurals.
func (r Recipe) ContainsIngredient(name string) bool {
	for _, ing := range r.Ingredients {
		if MatchesIngredient(ing.Name, name) {
			return true
		}
	}
	return false
}

// IngredientNames returns the normalized ingredient names.
func (r Recipe) IngredientNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, NormalizeName(ing.Name))
	}
	return names
}

// RecipeFilter is the structured query issued to the relational store.
// Zero values mean "no constraint".
type RecipeFilter struct {
	MaxPrepTime        float64
	MaxCookTime        float64
	MaxComplexity      float64
	Appliances         []string
	Cuisines           []string
	Tags               []string
	NutrientCeilings   map[Nutrient]float64
	ExcludeIngredients []string
	Limit              int
	Offset             int
}

// VectorHit is a semantic match and its cosine distance to the query.
type VectorHit struct {
	Recipe   Recipe
	Distance float64
}

// RecipeStore is the relational side of retrieval.
type RecipeStore interface {
	FindRecipes(ctx context.Context, filter RecipeFilter) ([]Recipe, error)
}

// VectorStore is the semantic side of retrieval.
type VectorStore interface {
	QuerySimilar(ctx context.Context, text string, k int, filter RecipeFilter) ([]VectorHit, error)
}

// ProfileStore loads profiles for ranking.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, userID string) (*Profile, error)
}

// InteractionFlags are the booleans recorded with one interaction.
type InteractionFlags struct {
	Viewed            bool `json:"viewed"`
	Saved             bool `json:"saved"`
	Started           bool `json:"started"`
	Completed         bool `json:"completed"`
	PhotoUploaded     bool `json:"photo_uploaded"`
	SharedWithFriends bool `json:"shared_with_friends"`
	MadeAgain         bool `json:"made_again"`
}

// InteractionRecorder appends interaction records.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, userID, recipeID string, flags InteractionFlags) error
}

// FilterFor turns search parameters into the relational filter.
func FilterFor(sp SearchParameters) RecipeFilter {
	f := RecipeFilter{
		MaxPrepTime:        sp.MaxPrepTime,
		MaxCookTime:        sp.MaxCookTime,
		MaxComplexity:      sp.MaxComplexity,
		Appliances:         sp.ApplianceOptions,
		ExcludeIngredients: sp.AvoidedIngredients(),
		Limit:              sp.ResultLimit,
	}

	// Narrow searches stay within the preferred cuisines.
	for _, c := range sortedKeys(sp.CuisineFlexibility) {
		if sp.CuisineFlexibility[c] < 0.75 {
			f.Cuisines = append(f.Cuisines, c)
		}
	}

	for n, hf := range sp.HealthFilters {
		t, ok := nutrientTargets[n]
		if !ok || t.dir != limitNutrient {
			continue
		}
		if f.NutrientCeilings == nil {
			f.NutrientCeilings = make(map[Nutrient]float64)
		}
		f.NutrientCeilings[n] = hf.Ceiling(t.target)
	}
	return f
}

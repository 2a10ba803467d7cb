package recommend

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
)

const (
	// questionnaireDislikeScore seeds an explicit dislike at one maximum nudge.
	questionnaireDislikeScore = -3
	// allergenMagnitude is the dislike magnitude used for allergens.
	allergenMagnitude = 3

	readinessNewFoods = "new_foods"
	readinessMealPrep = "meal_prep"
)

var validate = validator.New()

// ConditionAnswer is one health condition as answered in the questionnaire.
type ConditionAnswer struct {
	Name     string `json:"name" validate:"required"`
	Severity string `json:"severity" validate:"omitempty,oneof=mild moderate severe"`
}

// Questionnaire holds the raw intake answers.
type Questionnaire struct {
	UserID                   string            `json:"user_id" validate:"required"`
	PrimaryGoal              string            `json:"primary_goal" validate:"required"`
	SecondaryGoals           []string          `json:"secondary_goals"`
	HealthConditions         []ConditionAnswer `json:"health_conditions" validate:"dive"`
	Allergies                []string          `json:"allergies" validate:"dive,required"`
	DislikedIngredients      []string          `json:"disliked_ingredients" validate:"dive,required"`
	NutrientDeficiencies     []string          `json:"nutrient_deficiencies"`
	CookingSkill             int               `json:"cooking_skill" validate:"min=1,max=5"`
	MaxPrepTime              int               `json:"max_prep_time" validate:"min=1,max=600"`
	Budget                   string            `json:"budget" validate:"omitempty,oneof=budget moderate premium"`
	HouseholdSize            int               `json:"household_size" validate:"omitempty,min=1,max=20"`
	Appliances               []string          `json:"appliances"`
	CuisinePreferences       []string          `json:"cuisine_preferences"`
	SpiceTolerance           int               `json:"spice_tolerance" validate:"omitempty,min=1,max=5"`
	PortionControlMotivation int               `json:"portion_control_motivation" validate:"omitempty,min=1,max=5"`
	HabitChangeReadiness     []string          `json:"habit_change_readiness"`
}

// HealthCondition is a parsed condition with its severity.
type HealthCondition struct {
	Condition Condition `json:"condition"`
	Severity  string    `json:"severity,omitempty"`
}

// RatingSummary accumulates one user's ratings of one recipe.
type RatingSummary struct {
	Sum   int `json:"sum"`
	Count int `json:"count"`
}

// Average returns the mean rating, or 0 when there are none.
func (s RatingSummary) Average() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}

// RatingEvent is one past rating of a recipe by the user.
type RatingEvent struct {
	RecipeID    string   `json:"recipe_id"`
	Rating      int      `json:"rating"`
	Ingredients []string `json:"ingredients"`
}

// Profile is the normalized view of a user the ranking pipeline works on.
// It is JSON-serialisable and building parameters from a decoded snapshot
// yields the same parameters as building them from the original.
type Profile struct {
	UserID                   string                   `json:"user_id"`
	PrimaryGoal              Goal                     `json:"primary_goal,omitempty"`
	SecondaryGoals           []Goal                   `json:"secondary_goals,omitempty"`
	HealthConditions         []HealthCondition        `json:"health_conditions,omitempty"`
	Allergies                []string                 `json:"allergies,omitempty"`
	NutrientDeficiencies     []string                 `json:"nutrient_deficiencies,omitempty"`
	CookingSkill             int                      `json:"cooking_skill"`
	MaxPrepTime              int                      `json:"max_prep_time"`
	Budget                   Budget                   `json:"budget,omitempty"`
	HouseholdSize            int                      `json:"household_size"`
	Appliances               []string                 `json:"appliances,omitempty"`
	CuisinePreferences       []string                 `json:"cuisine_preferences,omitempty"`
	SpiceTolerance           int                      `json:"spice_tolerance"`
	PortionControlMotivation int                      `json:"portion_control_motivation"`
	HabitChangeReadiness     []string                 `json:"habit_change_readiness,omitempty"`
	IngredientAffinities     map[string]float64       `json:"ingredient_affinities,omitempty"`
	RecipeRatings            map[string]RatingSummary `json:"recipe_ratings,omitempty"`
	SuccessfulRecipes        map[string]bool          `json:"successful_recipes,omitempty"`
	FailedRecipes            map[string]bool          `json:"failed_recipes,omitempty"`
}

// LikedIngredients returns ingredients with a positive affinity.
func (p *Profile) LikedIngredients() map[string]float64 {
	liked := make(map[string]float64)
	for ing, score := range p.IngredientAffinities {
		if score > 0 {
			liked[ing] = score
		}
	}
	return liked
}

// DislikedIngredients returns ingredients with a negative affinity, keyed to
// the magnitude of the dislike.
func (p *Profile) DislikedIngredients() map[string]float64 {
	disliked := make(map[string]float64)
	for ing, score := range p.IngredientAffinities {
		if score < 0 {
			disliked[ing] = -score
		}
	}
	return disliked
}

// SuccessfulRecipeCount is the number of recipes the user cooked successfully.
func (p *Profile) SuccessfulRecipeCount() int {
	return len(p.SuccessfulRecipes)
}

// OpenToNewFoods reports whether the user said they are ready to try new foods.
func (p *Profile) OpenToNewFoods() bool {
	return containsName(p.HabitChangeReadiness, readinessNewFoods)
}

// HasAppliance reports whether the user owns the named appliance.
func (p *Profile) HasAppliance(name string) bool {
	return containsName(p.Appliances, name)
}

// HasCondition reports whether the user listed c.
func (p *Profile) HasCondition(c Condition) bool {
	for _, hc := range p.HealthConditions {
		if hc.Condition == c {
			return true
		}
	}
	return false
}

// RecordRating folds one rating into the recipe history. Ratings of 4 and
// above mark the recipe successful, 2 and below mark it failed.
func (p *Profile) RecordRating(recipeID string, rating int) {
	if recipeID == "" {
		return
	}
	if p.RecipeRatings == nil {
		p.RecipeRatings = make(map[string]RatingSummary)
	}
	s := p.RecipeRatings[recipeID]
	s.Sum += rating
	s.Count++
	p.RecipeRatings[recipeID] = s

	switch {
	case rating >= 4:
		if p.SuccessfulRecipes == nil {
			p.SuccessfulRecipes = make(map[string]bool)
		}
		p.SuccessfulRecipes[recipeID] = true
	case rating <= 2:
		if p.FailedRecipes == nil {
			p.FailedRecipes = make(map[string]bool)
		}
		p.FailedRecipes[recipeID] = true
	}
}

// AffinityDelta is the nudge a rating applies to each ingredient of the
// rated recipe. Neutral ratings return 0.
func AffinityDelta(rating int) float64 {
	switch {
	case rating >= 4:
		return float64(rating - 3)
	case rating <= 2:
		return -1
	default:
		return 0
	}
}

// ApplyRating nudges affinities for every ingredient of a rated recipe and
// returns the map, allocating it when nil.
func ApplyRating(affinities map[string]float64, rating int, ingredients []string) map[string]float64 {
	if affinities == nil {
		affinities = make(map[string]float64)
	}
	delta := AffinityDelta(rating)
	if delta == 0 {
		return affinities
	}
	seen := make(map[string]bool, len(ingredients))
	for _, ing := range ingredients {
		name := NormalizeName(ing)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		affinities[name] += delta
	}
	return affinities
}

// ConstraintStrictness is 1 for an unconstrained user and falls towards 0 as
// allergies, conditions and tight budgets accumulate.
func ConstraintStrictness(p *Profile) float64 {
	penalty := float64(len(p.Allergies))*0.1 + float64(len(p.HealthConditions))*0.15
	if p.Budget == BudgetLow {
		penalty += 0.2
	}
	if p.MaxPrepTime < 15 {
		penalty += 0.2
	}
	if p.CookingSkill < 2 {
		penalty += 0.15
	}
	return clamp01(1 - penalty)
}

// Normalize validates questionnaire answers and turns them, together with
// the user's rating history, into a Profile.
func Normalize(q Questionnaire, history []RatingEvent) (*Profile, error) {
	if err := validate.Struct(q); err != nil {
		return nil, apperrors.Input("invalid questionnaire").WithCause(err)
	}

	primary, err := ParseGoal(q.PrimaryGoal)
	if err != nil {
		return nil, apperrors.Input("invalid primary goal").WithCause(err)
	}

	p := &Profile{
		UserID:                   q.UserID,
		PrimaryGoal:              primary,
		CookingSkill:             q.CookingSkill,
		MaxPrepTime:              q.MaxPrepTime,
		Budget:                   Budget(q.Budget),
		HouseholdSize:            q.HouseholdSize,
		SpiceTolerance:           q.SpiceTolerance,
		PortionControlMotivation: q.PortionControlMotivation,
		Allergies:                normalizeSet(q.Allergies),
		NutrientDeficiencies:     normalizeSet(q.NutrientDeficiencies),
		Appliances:               normalizeSet(q.Appliances),
		CuisinePreferences:       normalizeSet(q.CuisinePreferences),
		HabitChangeReadiness:     normalizeReadiness(q.HabitChangeReadiness),
		IngredientAffinities:     make(map[string]float64),
	}

	for _, name := range q.SecondaryGoals {
		g, err := ParseGoal(name)
		if err != nil {
			return nil, apperrors.Input("invalid secondary goal").WithCause(err)
		}
		p.SecondaryGoals = append(p.SecondaryGoals, g)
	}

	for _, answer := range q.HealthConditions {
		c, err := ParseCondition(answer.Name)
		if err != nil {
			return nil, apperrors.Input("invalid health condition").WithCause(err)
		}
		if p.HasCondition(c) {
			continue
		}
		p.HealthConditions = append(p.HealthConditions, HealthCondition{Condition: c, Severity: answer.Severity})
	}

	for _, ing := range normalizeSet(q.DislikedIngredients) {
		p.IngredientAffinities[ing] = questionnaireDislikeScore
	}

	for _, ev := range history {
		if ev.Rating < 1 || ev.Rating > 5 {
			return nil, apperrors.Input("rating %d for recipe %s is outside 1-5", ev.Rating, ev.RecipeID)
		}
		p.IngredientAffinities = ApplyRating(p.IngredientAffinities, ev.Rating, ev.Ingredients)
		p.RecordRating(ev.RecipeID, ev.Rating)
	}

	return p, nil
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := NormalizeName(v)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Readiness answers are identifiers like "new_foods", so they keep underscores.
func normalizeReadiness(values []string) []string {
	out := normalizeSet(values)
	for i, v := range out {
		out[i] = strings.ReplaceAll(v, " ", "_")
	}
	return out
}

func containsName(set []string, name string) bool {
	name = NormalizeName(name)
	for _, v := range set {
		if NormalizeName(v) == name {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

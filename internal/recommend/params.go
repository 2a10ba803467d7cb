package recommend

import (
	"math"
	"sort"
)

const (
	spiceGoldenAntiInflammatory = "golden_antiinflammatory"
	spiceGreenCardio            = "green_cardio"
	batchCookingBonus           = 0.2
)

// HealthFilter is a per-nutrient importance/flexibility pair.
type HealthFilter struct {
	Importance  float64 `json:"importance"`
	Flexibility float64 `json:"flexibility"`
}

// Ceiling returns the per-serving upper bound for a limit nutrient with the
// given reference target.
func (f HealthFilter) Ceiling(target float64) float64 {
	return target * (2 - f.Importance + f.Flexibility)
}

// SearchParameters are derived per query and never persisted.
type SearchParameters struct {
	Expansion             float64                   `json:"expansion"`
	MaxPrepTime           float64                   `json:"max_prep_time"`
	MaxCookTime           float64                   `json:"max_cook_time"`
	MaxComplexity         float64                   `json:"max_complexity"`
	HealthFilters         map[Nutrient]HealthFilter `json:"health_filters"`
	IngredientWeights     map[string]float64        `json:"ingredient_weights"`
	ApplianceOptions      []string                  `json:"appliance_options"`
	CuisineFlexibility    map[string]float64        `json:"cuisine_flexibility"`
	PreferredSpiceBlends  []string                  `json:"preferred_spice_blends,omitempty"`
	MicronutrientPriority []string                  `json:"micronutrient_priority,omitempty"`
	BatchCookingBonus     float64                   `json:"batch_cooking_bonus"`
	ResultLimit           int                       `json:"result_limit"`
	SimilarityRadius      float64                   `json:"similarity_radius"`
}

// AvoidedIngredients lists ingredients whose weight is negative, sorted.
func (sp SearchParameters) AvoidedIngredients() []string {
	var out []string
	for _, ing := range sortedKeys(sp.IngredientWeights) {
		if sp.IngredientWeights[ing] < 0 {
			out = append(out, ing)
		}
	}
	return out
}

// BuildSearchParameters turns a profile and an expansion level into
// concrete retrieval parameters.
func BuildSearchParameters(p *Profile, expansion float64) SearchParameters {
	e := clamp01(expansion)

	sp := SearchParameters{
		Expansion:         e,
		MaxPrepTime:       float64(p.MaxPrepTime) * (1 + 0.3*e),
		MaxCookTime:       estimatedCookTime(p) * (1 + 0.4*e),
		MaxComplexity:     math.Min(5, float64(p.CookingSkill)+1.5*e),
		HealthFilters:     healthFilters(p, e),
		IngredientWeights: ingredientWeights(p, e),
		ApplianceOptions:  applianceOptions(p.Appliances, e),
		ResultLimit:       int(math.Floor(20 + 30*e)),
		SimilarityRadius:  0.3 + 0.4*e,
	}

	sp.CuisineFlexibility = make(map[string]float64, len(p.CuisinePreferences))
	for _, c := range p.CuisinePreferences {
		sp.CuisineFlexibility[c] = 0.5 + 0.5*e
	}

	if p.PrimaryGoal == GoalAntiInflammatory || containsGoal(p.SecondaryGoals, GoalAntiInflammatory) || p.HasCondition(ConditionArthritis) {
		sp.PreferredSpiceBlends = []string{spiceGoldenAntiInflammatory, spiceGreenCardio}
	}
	if len(p.NutrientDeficiencies) > 0 {
		sp.MicronutrientPriority = append([]string(nil), p.NutrientDeficiencies...)
	}
	if containsName(p.HabitChangeReadiness, readinessMealPrep) {
		sp.BatchCookingBonus = batchCookingBonus
	}

	return sp
}

func estimatedCookTime(p *Profile) float64 {
	minutes := 45 + float64(p.CookingSkill-3)*5 + float64(p.PortionControlMotivation-3)*3
	if p.HasAppliance("instant pot") {
		minutes -= 15
	}
	return math.Max(10, minutes)
}

// healthPriorities merges the condition tables and the primary goal table.
// A nutrient shared by several tables keeps its highest importance.
func healthPriorities(p *Profile) map[Nutrient]float64 {
	out := make(map[Nutrient]float64)
	merge := func(t priorityTable) {
		for n, importance := range t {
			if importance > out[n] {
				out[n] = importance
			}
		}
	}
	for _, hc := range p.HealthConditions {
		merge(conditionPriorities[hc.Condition])
	}
	merge(goalPriorities[p.PrimaryGoal])
	return out
}

func healthFilters(p *Profile, e float64) map[Nutrient]HealthFilter {
	priorities := healthPriorities(p)
	filters := make(map[Nutrient]HealthFilter, len(priorities))
	for n, importance := range priorities {
		filters[n] = HealthFilter{Importance: importance, Flexibility: e * (1 - importance)}
	}
	return filters
}

// ingredientWeights never lets a disliked ingredient or an allergen go
// positive: cuisine boosts skip them.
func ingredientWeights(p *Profile, e float64) map[string]float64 {
	weights := make(map[string]float64)
	avoided := make(map[string]bool)

	for ing, score := range p.LikedIngredients() {
		weights[ing] = score * (2 - e)
	}
	for ing, magnitude := range p.DislikedIngredients() {
		weights[ing] = magnitude * -2
		avoided[ing] = true
	}
	for _, allergen := range p.Allergies {
		w := allergenMagnitude * -2.0
		if cur, ok := weights[allergen]; ok && avoided[allergen] && cur < w {
			w = cur
		}
		weights[allergen] = w
		avoided[allergen] = true
	}

	for _, cuisine := range p.CuisinePreferences {
		for _, ing := range cuisineIngredients[cuisine] {
			if isAvoided(ing, avoided) {
				continue
			}
			weights[ing] += 0.5 * e
		}
	}
	return weights
}

// isAvoided compares whole names, so disliking olives keeps the olive oil
// boost while disliking tomatoes drops the tomato one.
func isAvoided(ing string, avoided map[string]bool) bool {
	stem := IngredientStem(ing)
	for name := range avoided {
		if IngredientStem(name) == stem {
			return true
		}
	}
	return false
}

func applianceOptions(primary []string, e float64) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, a := range primary {
		add(a)
	}
	if e <= 0.5 {
		return out
	}
	for _, a := range primary {
		alts := applianceAlternatives[a]
		n := int(math.Floor(e * float64(len(alts))))
		for _, alt := range alts[:n] {
			add(alt)
		}
	}
	return out
}

func containsGoal(goals []Goal, g Goal) bool {
	for _, v := range goals {
		if v == g {
			return true
		}
	}
	return false
}

func sortedNutrients(m map[Nutrient]float64) []Nutrient {
	keys := make([]Nutrient, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

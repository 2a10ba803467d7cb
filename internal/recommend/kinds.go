package recommend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCondition = errors.New("unknown health condition")
	ErrUnknownGoal      = errors.New("unknown goal")
)

// Condition is a health condition with a known nutrient priority table.
type Condition string

const (
	ConditionDiabetes     Condition = "diabetes"
	ConditionHeartDisease Condition = "heart_disease"
	ConditionPCOS         Condition = "pcos"
	ConditionIBS          Condition = "ibs"
	ConditionArthritis    Condition = "arthritis"
)

var conditionAliases = map[string]Condition{
	"diabetes":       ConditionDiabetes,
	"type2diabetes":  ConditionDiabetes,
	"heartdisease":   ConditionHeartDisease,
	"cardiovascular": ConditionHeartDisease,
	"pcos":           ConditionPCOS,
	"ibs":            ConditionIBS,
	"arthritis":      ConditionArthritis,
}

// ParseCondition maps a free-form condition name onto the closed set.
func ParseCondition(name string) (Condition, error) {
	if c, ok := conditionAliases[squash(name)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCondition, name)
}

// Goal is a primary or secondary user goal.
type Goal string

const (
	GoalWeightLoss       Goal = "weight_loss"
	GoalMuscleGain       Goal = "muscle_gain"
	GoalAntiAging        Goal = "anti_aging"
	GoalAntiInflammatory Goal = "anti_inflammatory"
	GoalMedicalCondition Goal = "medical_condition"
	GoalLifestyleDiet    Goal = "lifestyle_diet"
	GoalGeneralHealth    Goal = "general_health"
)

var goalAliases = map[string]Goal{
	"weightloss":       GoalWeightLoss,
	"musclegain":       GoalMuscleGain,
	"antiaging":        GoalAntiAging,
	"longevity":        GoalAntiAging,
	"antiinflammatory": GoalAntiInflammatory,
	"medicalcondition": GoalMedicalCondition,
	"lifestylediet":    GoalLifestyleDiet,
	"generalhealth":    GoalGeneralHealth,
}

// ParseGoal maps a free-form goal name onto the closed set.
func ParseGoal(name string) (Goal, error) {
	if g, ok := goalAliases[squash(name)]; ok {
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGoal, name)
}

// Budget is the user's budget tier.
type Budget string

const (
	BudgetLow      Budget = "budget"
	BudgetModerate Budget = "moderate"
	BudgetPremium  Budget = "premium"
)

// Nutrient names a dimension of a health priority table. Only some of them
// are measured in NutritionFacts.
type Nutrient string

const (
	NutrientCalories         Nutrient = "calories"
	NutrientProtein          Nutrient = "protein"
	NutrientCarbs            Nutrient = "carbs"
	NutrientSugar            Nutrient = "sugar"
	NutrientFiber            Nutrient = "fiber"
	NutrientSaturatedFat     Nutrient = "saturated_fat"
	NutrientSodium           Nutrient = "sodium"
	NutrientOmega3           Nutrient = "omega3"
	NutrientGlycemicIndex    Nutrient = "glycemic_index"
	NutrientAntiInflammatory Nutrient = "anti_inflammatory"
	NutrientFODMAP           Nutrient = "fodmap"
	NutrientFermented        Nutrient = "fermented"
	NutrientSatiety          Nutrient = "satiety"
	NutrientTiming           Nutrient = "timing"
	NutrientAntioxidants     Nutrient = "antioxidants"
	NutrientMicronutrients   Nutrient = "micronutrients"
)

type priorityTable map[Nutrient]float64

var conditionPriorities = map[Condition]priorityTable{
	ConditionDiabetes:     {NutrientCarbs: 0.9, NutrientSugar: 0.95, NutrientFiber: 0.8, NutrientGlycemicIndex: 0.85},
	ConditionHeartDisease: {NutrientSaturatedFat: 0.9, NutrientSodium: 0.85, NutrientOmega3: 0.8},
	ConditionPCOS:         {NutrientGlycemicIndex: 0.9, NutrientAntiInflammatory: 0.85, NutrientProtein: 0.7},
	ConditionIBS:          {NutrientFODMAP: 0.95, NutrientFiber: 0.7, NutrientFermented: 0.6},
	ConditionArthritis:    {NutrientAntiInflammatory: 0.9, NutrientOmega3: 0.8},
}

var goalPriorities = map[Goal]priorityTable{
	GoalWeightLoss:       {NutrientCalories: 0.9, NutrientProtein: 0.7, NutrientFiber: 0.8, NutrientSatiety: 0.85},
	GoalMuscleGain:       {NutrientProtein: 0.95, NutrientCalories: 0.7, NutrientCarbs: 0.8, NutrientTiming: 0.6},
	GoalAntiAging:        {NutrientAntioxidants: 0.9, NutrientOmega3: 0.8, NutrientMicronutrients: 0.85},
	GoalAntiInflammatory: {NutrientAntiInflammatory: 0.9, NutrientOmega3: 0.8},
}

type direction int

const (
	limitNutrient direction = iota
	seekNutrient
)

// nutrientTarget is a per-serving reference value.
type nutrientTarget struct {
	target float64
	dir    direction
}

var nutrientTargets = map[Nutrient]nutrientTarget{
	NutrientCalories:      {600, limitNutrient},
	NutrientCarbs:         {60, limitNutrient},
	NutrientSugar:         {10, limitNutrient},
	NutrientSaturatedFat:  {5, limitNutrient},
	NutrientSodium:        {600, limitNutrient},
	NutrientGlycemicIndex: {55, limitNutrient},
	NutrientFiber:         {8, seekNutrient},
	NutrientProtein:       {30, seekNutrient},
	NutrientOmega3:        {1, seekNutrient},
}

type behaviorBundle struct {
	simplicity float64
	time       float64
}

var (
	lowMotivation  = behaviorBundle{simplicity: 0.9, time: 0.85}
	highMotivation = behaviorBundle{}
)

var cuisineIngredients = map[string][]string{
	"italian": {"tomato", "basil", "garlic", "olive oil", "parmesan"},
	"mexican": {"lime", "cilantro", "chili", "cumin", "avocado"},
	"chinese": {"soy sauce", "ginger", "sesame", "rice wine", "scallion"},
	"indian":  {"turmeric", "cumin", "coriander", "garam masala", "yogurt"},
}

var applianceAlternatives = map[string][]string{
	"oven":        {"air fryer", "toaster oven"},
	"stovetop":    {"electric skillet", "hot plate"},
	"instant pot": {"slow cooker", "stovetop pressure cooker"},
	"air fryer":   {"oven", "convection oven"},
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-', '.', '\'':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeName lowercases s and folds separators into single spaces, so
// "Instant_Pot" and "instant pot" compare equal.
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// IngredientStem normalizes s and reduces each word to its singular form,
// so "Peanuts" and "peanut butter" share the stem "peanut".
func IngredientStem(s string) string {
	words := strings.Fields(NormalizeName(s))
	for i, w := range words {
		words[i] = singular(w)
	}
	return strings.Join(words, " ")
}

func singular(w string) string {
	switch {
	case len(w) <= 3:
		return w
	case strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "oes"), strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// MatchesIngredient reports whether the ingredient name contains the
// avoided or weighted name once both are stemmed.
func MatchesIngredient(ingredient, name string) bool {
	stem := IngredientStem(name)
	if stem == "" {
		return false
	}
	return strings.Contains(IngredientStem(ingredient), stem)
}

package llm

import "strings"

// KojoSystemPrompt is the persona of the assistant.
const KojoSystemPrompt = `You are Flavor Monk (Kojo), an empathetic AI nutrition assistant with expertise in culinary science and evidence-based nutrition. You speak in a warm, encouraging tone while providing practical, scientifically-sound advice.`

// BuildPrompt renders q as a single prompt.
func BuildPrompt(q Query) string {
	var sb strings.Builder
	if q.Context != "" {
		sb.WriteString("User Context:\n")
		sb.WriteString(q.Context)
		sb.WriteString("\n\n")
	}
	sb.WriteString("User Query: ")
	sb.WriteString(q.Text)
	sb.WriteString("\n\nResponse:")
	return sb.String()
}

var (
	recipeWords    = []string{"recipe", "cook", "make"}
	mealPlanWords  = []string{"meal plan", "week", "planning"}
	scienceWords   = []string{"nutrient", "vitamin", "deficiency", "health", "medical"}
	techniqueWords = []string{"how to", "technique", "help"}
)

// ClassifyQuery guesses the query type of a chat message.
func ClassifyQuery(message string) QueryType {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, recipeWords):
		return QueryRecipe
	case containsAny(lower, mealPlanWords):
		return QueryMealPlan
	case containsAny(lower, scienceWords):
		return QueryNutritionScience
	case containsAny(lower, techniqueWords):
		return QueryCookingHelp
	default:
		return QueryGeneral
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

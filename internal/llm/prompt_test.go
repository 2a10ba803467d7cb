package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		message string
		want    QueryType
	}{
		{"Can you suggest a recipe with lentils?", QueryRecipe},
		{"What should I cook this week?", QueryRecipe},
		{"Help me with planning my week", QueryMealPlan},
		{"Am I low on vitamin D?", QueryNutritionScience},
		{"How to julienne carrots", QueryCookingHelp},
		{"Hello Kojo", QueryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyQuery(tt.message))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "User Query: hi\n\nResponse:", BuildPrompt(Query{Text: "hi"}))
	assert.Equal(t, "User Context:\nlikes tofu\n\nUser Query: hi\n\nResponse:",
		BuildPrompt(Query{Text: "hi", Context: "likes tofu"}))
}

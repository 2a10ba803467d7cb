package recommend

import (
	"strings"
	"unicode"
)

const (
	specificityNarrow   = 0.2
	specificityModerate = 0.5
	specificityBroad    = 0.8
	specificityDefault  = 0.5
)

// Marker categories are evaluated in this order; the last one that matches
// wins.
var specificityMarkers = []struct {
	words map[string]bool
	value float64
}{
	{words: wordSet("exactly", "specific", "only", "must"), value: specificityNarrow},
	{words: wordSet("similar", "like", "around", "about"), value: specificityModerate},
	{words: wordSet("any", "something", "ideas", "suggestions"), value: specificityBroad},
}

// QuerySpecificity scores how narrowly the query is phrased.
func QuerySpecificity(query string) float64 {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	score := specificityDefault
	for _, category := range specificityMarkers {
		for _, w := range words {
			if category.words[w] {
				score = category.value
				break
			}
		}
	}
	return score
}

// Expansion computes how broad a search should be for query, from 0
// (narrow) to 1 (broad). intentStrength is the caller's confidence that
// the query says exactly what the user wants.
func Expansion(query string, p *Profile, intentStrength float64, w ExpansionWeights) float64 {
	timePressure := 0.7
	if p.MaxPrepTime < 20 {
		timePressure = 0.3
	}
	experience := float64(p.SuccessfulRecipeCount()) / 50
	if experience > 1 {
		experience = 1
	}

	e := w.QuerySpecificity*QuerySpecificity(query) +
		w.ConstraintStrictness*ConstraintStrictness(p) +
		w.ExploratoryIntent*(1-clamp01(intentStrength)) +
		w.UserExperience*experience +
		w.TimePressure*timePressure
	return clamp01(e)
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

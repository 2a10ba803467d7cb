package service

import (
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

// ToCandidate converts a stored recipe into a ranking candidate.
func ToCandidate(r *models.Recipe) recommend.Recipe {
	out := recommend.Recipe{
		ID:                 r.ID.String(),
		Name:               r.Name,
		Description:        r.Description,
		Cuisine:            r.Cuisine,
		PrepTime:           r.PrepTime,
		CookTime:           r.CookTime,
		TotalTime:          r.TotalTime,
		Servings:           r.Servings,
		Complexity:         r.Complexity,
		CostTier:           r.CostTier,
		RequiredAppliances: append([]string(nil), r.RequiredAppliances...),
		Nutrition:          recommend.NutritionFacts(r.Nutrition),
		AverageRating:      r.AverageRating,
		RatingCount:        r.RatingCount,
		CompletionRate:     r.CompletionRate,
	}
	for _, ing := range r.Ingredients {
		out.Ingredients = append(out.Ingredients, recommend.Ingredient{Name: ing.Name, Amount: ing.Amount, Unit: ing.Unit})
	}
	for _, tag := range r.Tags {
		out.Tags = append(out.Tags, tag.Tag)
	}
	return out
}

func toCandidates(rs []models.Recipe) []recommend.Recipe {
	out := make([]recommend.Recipe, 0, len(rs))
	for i := range rs {
		out = append(out, ToCandidate(&rs[i]))
	}
	return out
}

// normalizeRecipe canonicalises the names that filters compare against.
func normalizeRecipe(r *models.Recipe) {
	r.Cuisine = recommend.NormalizeName(r.Cuisine)
	apps := make(models.StringSet, 0, len(r.RequiredAppliances))
	for _, a := range r.RequiredAppliances {
		if n := recommend.NormalizeName(a); n != "" {
			apps = append(apps, n)
		}
	}
	r.RequiredAppliances = apps
	for i := range r.Ingredients {
		r.Ingredients[i].Name = recommend.NormalizeName(r.Ingredients[i].Name)
	}
	for i := range r.Tags {
		r.Tags[i].Tag = recommend.NormalizeName(r.Tags[i].Tag)
	}
	if r.TotalTime == 0 {
		r.TotalTime = r.PrepTime + r.CookTime
	}
}

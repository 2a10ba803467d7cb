package recommend

import (
	"math"
	"sort"
)

const neutralScore = 0.5

// SubScores are the six components of a personalized score.
type SubScores struct {
	HealthAlignment     float64 `json:"health_alignment"`
	PreferenceAlignment float64 `json:"preference_alignment"`
	BehavioralFit       float64 `json:"behavioral_fit"`
	ComplexityMatch     float64 `json:"complexity_match"`
	HistoricalSuccess   float64 `json:"historical_success"`
	NoveltyBalance      float64 `json:"novelty_balance"`
}

// RankedCandidate is a recipe with the score that placed it.
type RankedCandidate struct {
	Recipe            Recipe    `json:"recipe"`
	PersonalizedScore float64   `json:"personalized_score"`
	SubScores         SubScores `json:"sub_scores"`
}

// Ranker scores candidates against a profile.
type Ranker struct {
	weights ScoreWeights
}

// NewRanker creates a ranker with the given sub-score weights.
func NewRanker(w ScoreWeights) *Ranker {
	return &Ranker{weights: w}
}

// Rank scores every candidate and sorts them by descending score. Ties keep
// their input order.
func (r *Ranker) Rank(candidates []Recipe, p *Profile) []RankedCandidate {
	sc := newScoringContext(p)
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, r.score(c, sc))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PersonalizedScore > ranked[j].PersonalizedScore
	})
	return ranked
}

// Score computes one candidate's score.
func (r *Ranker) Score(c Recipe, p *Profile) RankedCandidate {
	return r.score(c, newScoringContext(p))
}

func (r *Ranker) score(c Recipe, sc *scoringContext) RankedCandidate {
	s := SubScores{
		HealthAlignment:     sc.healthAlignment(c),
		PreferenceAlignment: sc.preferenceAlignment(c),
		BehavioralFit:       sc.behavioralFit(c),
		ComplexityMatch:     ComplexityMatch(c.Complexity, sc.profile.CookingSkill),
		HistoricalSuccess:   sc.historicalSuccess(c),
		NoveltyBalance:      sc.noveltyBalance(c),
	}
	w := r.weights
	total := w.Health*s.HealthAlignment +
		w.Preference*s.PreferenceAlignment +
		w.Behavioral*s.BehavioralFit +
		w.Complexity*s.ComplexityMatch +
		w.Historical*s.HistoricalSuccess +
		w.Novelty*s.NoveltyBalance
	return RankedCandidate{Recipe: c, PersonalizedScore: clamp01(total), SubScores: s}
}

// ComplexityMatch is 1 when complexity equals skill and falls by 0.2 per
// level of difference.
func ComplexityMatch(complexity, skill int) float64 {
	return math.Max(0, 1-math.Abs(float64(complexity-skill))/5)
}

// scoringContext holds the per-profile values shared by all candidates of
// one ranking call.
type scoringContext struct {
	profile     *Profile
	priorities  map[Nutrient]float64
	nutrients   []Nutrient
	weights     map[string]float64
	weightKeys  []string
	bundle      behaviorBundle
	novelty     float64
	batchCooker bool
}

func newScoringContext(p *Profile) *scoringContext {
	if p == nil {
		p = &Profile{}
	}
	sc := &scoringContext{
		profile:     p,
		priorities:  healthPriorities(p),
		weights:     ingredientWeights(p, 0),
		bundle:      highMotivation,
		novelty:     0.3,
		batchCooker: containsName(p.HabitChangeReadiness, readinessMealPrep),
	}
	sc.nutrients = sortedNutrients(sc.priorities)
	sc.weightKeys = sortedKeys(sc.weights)
	if p.PortionControlMotivation < 3 {
		sc.bundle = lowMotivation
	}
	if p.OpenToNewFoods() {
		sc.novelty = 0.7
	}
	return sc
}

// healthAlignment moves away from 0.5 by how close each measured priority
// nutrient is to its reference target, weighted by importance.
func (sc *scoringContext) healthAlignment(c Recipe) float64 {
	type term struct{ importance, closeness float64 }
	var terms []term
	for _, n := range sc.nutrients {
		target, ok := nutrientTargets[n]
		if !ok {
			continue
		}
		v, ok := c.Nutrition.Value(n)
		if !ok {
			continue
		}
		var closeness float64
		if target.dir == limitNutrient {
			closeness = clamp01(1 - v/target.target)
		} else {
			closeness = clamp01(v / target.target)
		}
		terms = append(terms, term{sc.priorities[n], closeness})
	}
	if len(terms) == 0 {
		return neutralScore
	}

	score := neutralScore
	for _, t := range terms {
		score += t.importance * (t.closeness - 0.5) / float64(len(terms))
	}
	return clamp01(score)
}

func (sc *scoringContext) preferenceAlignment(c Recipe) float64 {
	var sum, abs float64
	for _, name := range c.IngredientNames() {
		w, ok := sc.ingredientWeight(name)
		if !ok {
			continue
		}
		sum += w
		abs += math.Abs(w)
	}
	if abs == 0 {
		return neutralScore
	}
	return clamp01(0.5 + sum/(2*abs))
}

// ingredientWeight prefers an exact match and otherwise sums the weights of
// every weighted name the ingredient contains ("peanuts" in "peanut butter").
func (sc *scoringContext) ingredientWeight(name string) (float64, bool) {
	if w, ok := sc.weights[name]; ok {
		return w, true
	}
	var total float64
	found := false
	for _, key := range sc.weightKeys {
		if MatchesIngredient(name, key) {
			total += sc.weights[key]
			found = true
		}
	}
	return total, found
}

func (sc *scoringContext) behavioralFit(c Recipe) float64 {
	b := sc.bundle
	fit := neutralScore
	if denom := b.simplicity + b.time; denom > 0 {
		simplicity := float64(5-c.Complexity) / 5
		quickness := math.Max(0, 1-float64(c.Minutes())/60)
		fit = (simplicity*b.simplicity + quickness*b.time) / denom
	}
	if sc.batchCooker && (c.HasTag("meal_prep") || c.HasTag("batch_cooking")) {
		fit += batchCookingBonus
	}
	return clamp01(fit)
}

func (sc *scoringContext) historicalSuccess(c Recipe) float64 {
	s, ok := sc.profile.RecipeRatings[c.ID]
	if !ok || s.Count == 0 {
		return neutralScore
	}
	return clamp01(s.Average() / 5)
}

func (sc *scoringContext) noveltyBalance(c Recipe) float64 {
	if sc.profile.SuccessfulRecipes[c.ID] {
		return 1 - sc.novelty
	}
	return sc.novelty
}

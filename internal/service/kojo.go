package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

const (
	chatIntentStrength = 0.5
	chatSuggestions    = 3
	lovedAffinity      = 2.0
	avoidedAffinity    = -1.0
	historyLimit       = 5
)

// Ranker produces personalized rankings.
type Ranker interface {
	Rank(ctx context.Context, query, userID string, intentStrength float64) ([]recommend.RankedCandidate, error)
}

// LLMRouter answers assistant queries.
type LLMRouter interface {
	Route(ctx context.Context, q llm.Query) llm.Response
}

// ChatReply is Kojo's answer to one message.
type ChatReply struct {
	Message     string
	QueryType   llm.QueryType
	Source      llm.Source
	Suggestions []recommend.RankedCandidate
}

// KojoService is the chat assistant. It grounds each answer in the user's
// profile and the recipes the ranking pipeline picks for the message.
type KojoService struct {
	ranker   Ranker
	profiles recommend.ProfileStore
	recipes  *RecipeService
	router   LLMRouter
	logger   *zap.Logger
}

func NewKojoService(ranker Ranker, profiles recommend.ProfileStore, recipes *RecipeService, router LLMRouter, logger *zap.Logger) *KojoService {
	return &KojoService{
		ranker:   ranker,
		profiles: profiles,
		recipes:  recipes,
		router:   router,
		logger:   logger.Named("kojo"),
	}
}

// Chat answers message for the user.
func (s *KojoService) Chat(ctx context.Context, userID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.Input("message must not be blank")
	}

	profile, err := s.profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	queryType := llm.ClassifyQuery(message)
	var suggestions []recommend.RankedCandidate
	if queryType == llm.QueryRecipe || queryType == llm.QueryMealPlan {
		ranked, err := s.ranker.Rank(ctx, message, userID, chatIntentStrength)
		switch {
		case err == nil:
			if len(ranked) > chatSuggestions {
				ranked = ranked[:chatSuggestions]
			}
			suggestions = ranked
		case errors.Is(err, apperrors.ErrInvalidInput):
			return nil, err
		default:
			s.logger.Warn("ranking unavailable for chat", zap.String("user_id", userID), zap.Error(err))
		}
	}

	userContext, err := s.buildContext(ctx, profile, suggestions)
	if err != nil {
		return nil, err
	}

	resp := s.router.Route(ctx, llm.Query{Type: queryType, Text: message, Context: userContext})
	return &ChatReply{
		Message:     resp.Text,
		QueryType:   queryType,
		Source:      resp.Source,
		Suggestions: suggestions,
	}, nil
}

// buildContext summarises what the assistant should know about the user.
func (s *KojoService) buildContext(ctx context.Context, p *recommend.Profile, suggestions []recommend.RankedCandidate) (string, error) {
	var lines []string
	if p.PrimaryGoal != "" {
		lines = append(lines, "Primary goal: "+humanize(string(p.PrimaryGoal)))
	}
	if len(p.HealthConditions) > 0 {
		names := make([]string, 0, len(p.HealthConditions))
		for _, hc := range p.HealthConditions {
			names = append(names, humanize(string(hc.Condition)))
		}
		lines = append(lines, "Health conditions: "+strings.Join(names, ", "))
	}
	if len(p.Allergies) > 0 {
		lines = append(lines, "Allergies (never suggest): "+strings.Join(p.Allergies, ", "))
	}
	lines = append(lines, fmt.Sprintf("Cooking skill: %d/5, at most %d minutes of prep", p.CookingSkill, p.MaxPrepTime))

	if loved := affinityNames(p.IngredientAffinities, func(v float64) bool { return v > lovedAffinity }); len(loved) > 0 {
		lines = append(lines, "Loves: "+strings.Join(loved, ", "))
	}
	if avoided := affinityNames(p.IngredientAffinities, func(v float64) bool { return v < avoidedAffinity }); len(avoided) > 0 {
		lines = append(lines, "Avoids: "+strings.Join(avoided, ", "))
	}

	params := recommend.BuildSearchParameters(p, 0.5)
	if len(params.PreferredSpiceBlends) > 0 {
		lines = append(lines, "Suggested spice blends: "+strings.Join(params.PreferredSpiceBlends, ", "))
	}
	if len(params.MicronutrientPriority) > 0 {
		lines = append(lines, "Micronutrients to prioritise: "+strings.Join(params.MicronutrientPriority, ", "))
	}

	favourites, err := s.topRated(ctx, p)
	if err != nil {
		return "", err
	}
	if len(favourites) > 0 {
		lines = append(lines, "Top rated recipes: "+strings.Join(favourites, ", "))
	}

	if len(suggestions) > 0 {
		lines = append(lines, "Recommended recipes for this request:")
		for _, c := range suggestions {
			lines = append(lines, fmt.Sprintf("- %s (%d min, match %.0f%%)", c.Recipe.Name, c.Recipe.Minutes(), c.PersonalizedScore*100))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// topRated returns the names of the user's best rated recipes.
func (s *KojoService) topRated(ctx context.Context, p *recommend.Profile) ([]string, error) {
	type rated struct {
		id  uuid.UUID
		avg float64
	}
	var best []rated
	for id, summary := range p.RecipeRatings {
		if summary.Average() < 4 {
			continue
		}
		uid, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		best = append(best, rated{id: uid, avg: summary.Average()})
	}
	if len(best) == 0 || s.recipes == nil {
		return nil, nil
	}
	sort.Slice(best, func(i, j int) bool {
		if best[i].avg != best[j].avg {
			return best[i].avg > best[j].avg
		}
		return best[i].id.String() < best[j].id.String()
	})
	if len(best) > historyLimit {
		best = best[:historyLimit]
	}

	ids := make([]uuid.UUID, len(best))
	for i, b := range best {
		ids[i] = b.id
	}
	names, err := s.recipes.RecipeNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func affinityNames(affinities map[string]float64, keep func(float64) bool) []string {
	var names []string
	for _, name := range sortedNames(affinities) {
		if keep(affinities[name]) {
			names = append(names, name)
		}
	}
	return names
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/cache"
)

// QueryType classifies an assistant query.
type QueryType string

const (
	QueryRecipe           QueryType = "recipe"
	QueryMealPlan         QueryType = "meal_plan"
	QueryNutritionScience QueryType = "nutrition_science"
	QueryCookingHelp      QueryType = "cooking_help"
	QueryGeneral          QueryType = "general"
)

// Source says which backend produced a response.
type Source string

const (
	SourceLocal    Source = "local"
	SourceCloud    Source = "cloud"
	SourceFallback Source = "fallback"
)

// costPerThousandTokens is the cloud price used for budget estimates.
const costPerThousandTokens = 0.015

var complexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)micronutrient.*interaction`),
	regexp.MustCompile(`(?i)clinical.*evidence`),
	regexp.MustCompile(`(?i)medical.*condition`),
	regexp.MustCompile(`(?i)drug.*food.*interaction`),
	regexp.MustCompile(`(?i)bioavailability`),
	regexp.MustCompile(`(?i)glycemic.*load.*calculation`),
	regexp.MustCompile(`(?i)nutrient.*deficiency.*analysis`),
}

var fallbackReplies = map[QueryType]string{
	QueryRecipe:   "I'd be happy to help you find a recipe! Based on your preferences, I suggest starting with simple, nutritious meals that fit your cooking skills and available time.",
	QueryMealPlan: "Let me create a balanced meal plan for you. Focus on variety, seasonal ingredients, and meals you can prep in advance.",
	QueryGeneral:  "I'm here to help with your nutrition journey. What specific aspect would you like to explore?",
}

// Query is one assistant request. Context is free text prepended to the
// prompt, such as the user's profile summary.
type Query struct {
	Type    QueryType
	Text    string
	Context string
}

// Response is the routed answer.
type Response struct {
	Text     string  `json:"text"`
	Source   Source  `json:"source"`
	Provider string  `json:"provider,omitempty"`
	Cost     float64 `json:"cost"`
	Cached   bool    `json:"cached"`
}

// RouterObserver receives one call per routed query.
type RouterObserver interface {
	LLMRouted(source string, cached bool, cost float64)
}

type nopRouterObserver struct{}

func (nopRouterObserver) LLMRouted(string, bool, float64) {}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithCloud enables the cloud provider, limited by budget.
func WithCloud(p Provider, budget *BudgetTracker) RouterOption {
	return func(r *Router) {
		r.cloud = p
		r.budget = budget
	}
}

// WithResponseCache caches non-fallback responses.
func WithResponseCache(c cache.Cache, ttl time.Duration) RouterOption {
	return func(r *Router) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

func WithRouterObserver(o RouterObserver) RouterOption {
	return func(r *Router) { r.observer = o }
}

func WithRouterLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = l.Named("llm-router") }
}

// Router sends routine queries to the local model and complex nutrition
// science queries to the cloud model while the daily budget lasts. When
// every backend fails it answers with a canned reply.
type Router struct {
	local    Provider
	cloud    Provider
	budget   *BudgetTracker
	cache    cache.Cache
	cacheTTL time.Duration
	observer RouterObserver
	logger   *zap.Logger
}

// NewRouter creates a router over the local provider, which may be nil.
func NewRouter(local Provider, opts ...RouterOption) *Router {
	r := &Router{
		local:    local,
		observer: nopRouterObserver{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RequiresCloud reports whether text is a complex nutrition science query.
func RequiresCloud(text string) bool {
	for _, p := range complexPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// EstimateCost is the rough cloud price of answering text, counting four
// characters per token and as many output tokens as input tokens.
func EstimateCost(text string) float64 {
	tokens := float64(len(text)) / 4 * 2
	return tokens / 1000 * costPerThousandTokens
}

// Route answers q, consulting the response cache first.
func (r *Router) Route(ctx context.Context, q Query) Response {
	key := cacheKey(q)
	if resp, ok := r.cached(ctx, q.Type, key); ok {
		r.observer.LLMRouted(string(resp.Source), true, 0)
		return resp
	}

	resp := r.route(ctx, q)
	r.observer.LLMRouted(string(resp.Source), false, resp.Cost)
	if resp.Source != SourceFallback {
		r.store(ctx, q.Type, key, resp)
	}
	return resp
}

func (r *Router) route(ctx context.Context, q Query) Response {
	prompt := BuildPrompt(q)
	params := Params{System: KojoSystemPrompt, Temperature: 0.7, MaxTokens: 800}

	if r.cloud != nil && RequiresCloud(q.Text) {
		cost := EstimateCost(q.Text)
		reservation, ok := Reservation{}, true
		if r.budget != nil {
			reservation, ok = r.budget.Reserve(cost)
		}
		if ok {
			text, err := r.cloud.Complete(ctx, prompt, params)
			if err == nil {
				return Response{Text: text, Source: SourceCloud, Provider: r.cloud.Name(), Cost: cost}
			}
			if r.budget != nil {
				r.budget.Refund(reservation)
			}
			r.logger.Warn("cloud completion failed, using local model",
				zap.String("provider", r.cloud.Name()), zap.Error(err))
		} else {
			r.logger.Info("daily cloud budget exhausted, using local model")
		}
	}

	if r.local != nil {
		text, err := r.local.Complete(ctx, prompt, params)
		if err == nil {
			return Response{Text: text, Source: SourceLocal, Provider: r.local.Name()}
		}
		r.logger.Warn("local completion failed, using fallback reply",
			zap.String("provider", r.local.Name()), zap.Error(err))
	}

	return Response{Text: FallbackReply(q.Type), Source: SourceFallback}
}

// FallbackReply is the canned answer for a query type.
func FallbackReply(t QueryType) string {
	if reply, ok := fallbackReplies[t]; ok {
		return reply
	}
	return fallbackReplies[QueryGeneral]
}

func (r *Router) cached(ctx context.Context, t QueryType, key string) (Response, bool) {
	if r.cache == nil {
		return Response{}, false
	}
	data, ok, err := r.cache.Get(ctx, string(t), key)
	if err != nil {
		r.logger.Warn("response cache read failed", zap.Error(err))
		return Response{}, false
	}
	if !ok {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, false
	}
	resp.Cost = 0
	resp.Cached = true
	return resp, true
}

func (r *Router) store(ctx context.Context, t QueryType, key string, resp Response) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, string(t), key, data, r.cacheTTL); err != nil {
		r.logger.Warn("response cache write failed", zap.Error(err))
	}
}

// cacheKey is the normalized query text, followed by a digest of the
// context when there is one so personalised answers are never shared.
func cacheKey(q Query) string {
	key := strings.Join(strings.Fields(strings.ToLower(q.Text)), " ")
	if q.Context == "" {
		return key
	}
	sum := sha256.Sum256([]byte(q.Context))
	return key + "|" + hex.EncodeToString(sum[:8])
}

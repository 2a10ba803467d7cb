package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/flavor-monk/backend/internal/cache"
)

type fakeProvider struct {
	mu      sync.Mutex
	name    string
	reply   string
	err     error
	prompts []string
	params  []Params
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, prompt string, params Params) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.params = append(f.params, params)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type recordingObserver struct {
	sources []string
	cached  []bool
}

func (o *recordingObserver) LLMRouted(source string, cached bool, _ float64) {
	o.sources = append(o.sources, source)
	o.cached = append(o.cached, cached)
}

const complexQuery = "What is the bioavailability of iron in spinach?"

func TestRequiresCloud(t *testing.T) {
	assert.True(t, RequiresCloud(complexQuery))
	assert.True(t, RequiresCloud("any clinical trial evidence for turmeric?"))
	assert.True(t, RequiresCloud("Drug and food interaction with warfarin"))
	assert.False(t, RequiresCloud("quick pasta for dinner"))
}

func TestEstimateCost(t *testing.T) {
	// 400 chars -> 200 tokens -> 0.2 * 0.015
	text := string(make([]byte, 400))
	assert.InDelta(t, 0.003, EstimateCost(text), 1e-12)
}

func TestRouter_RoutineQueryStaysLocal(t *testing.T) {
	local := &fakeProvider{name: "ollama", reply: "local answer"}
	cloud := &fakeProvider{name: "deepseek", reply: "cloud answer"}
	r := NewRouter(local, WithCloud(cloud, NewBudgetTracker(5, nil)))

	resp := r.Route(context.Background(), Query{Type: QueryRecipe, Text: "quick pasta"})

	assert.Equal(t, SourceLocal, resp.Source)
	assert.Equal(t, "local answer", resp.Text)
	assert.Zero(t, resp.Cost)
	assert.Zero(t, cloud.calls())
	require.Len(t, local.params, 1)
	assert.Equal(t, KojoSystemPrompt, local.params[0].System)
}

func TestRouter_ComplexQueryUsesCloudAndSpendsBudget(t *testing.T) {
	local := &fakeProvider{name: "ollama", reply: "local answer"}
	cloud := &fakeProvider{name: "deepseek", reply: "cloud answer"}
	budget := NewBudgetTracker(5, nil)
	r := NewRouter(local, WithCloud(cloud, budget))

	resp := r.Route(context.Background(), Query{Type: QueryNutritionScience, Text: complexQuery})

	assert.Equal(t, SourceCloud, resp.Source)
	assert.Equal(t, "deepseek", resp.Provider)
	assert.InDelta(t, EstimateCost(complexQuery), resp.Cost, 1e-12)
	assert.InDelta(t, resp.Cost, budget.Spent(), 1e-12)
	assert.Zero(t, local.calls())
}

func TestRouter_ExhaustedBudgetFallsBackToLocal(t *testing.T) {
	local := &fakeProvider{name: "ollama", reply: "local answer"}
	cloud := &fakeProvider{name: "deepseek", reply: "cloud answer"}
	budget := NewBudgetTracker(5, nil)
	_, ok := budget.Reserve(5)
	require.True(t, ok)
	r := NewRouter(local, WithCloud(cloud, budget))

	resp := r.Route(context.Background(), Query{Type: QueryNutritionScience, Text: complexQuery})

	assert.Equal(t, SourceLocal, resp.Source)
	assert.Zero(t, cloud.calls())
}

func TestRouter_CloudFailureFallsBackToLocal(t *testing.T) {
	local := &fakeProvider{name: "ollama", reply: "local answer"}
	cloud := &fakeProvider{name: "deepseek", err: errors.New("boom")}
	budget := NewBudgetTracker(5, nil)
	r := NewRouter(local, WithCloud(cloud, budget))

	resp := r.Route(context.Background(), Query{Type: QueryNutritionScience, Text: complexQuery})

	assert.Equal(t, SourceLocal, resp.Source)
	assert.Zero(t, budget.Spent(), "a failed cloud call is refunded")
}

func TestRouter_AllBackendsDownGivesCannedReply(t *testing.T) {
	local := &fakeProvider{name: "ollama", err: errors.New("connection refused")}
	c := cache.NewMemoryCache(10)
	r := NewRouter(local, WithResponseCache(c, time.Minute))

	resp := r.Route(context.Background(), Query{Type: QueryMealPlan, Text: "plan my week"})
	assert.Equal(t, SourceFallback, resp.Source)
	assert.Equal(t, FallbackReply(QueryMealPlan), resp.Text)
	assert.Zero(t, c.Len(), "fallback replies are not cached")

	assert.Equal(t, FallbackReply(QueryGeneral), FallbackReply(QueryCookingHelp))
}

func TestRouter_CachesByTypeAndQuery(t *testing.T) {
	local := &fakeProvider{name: "ollama", reply: "local answer"}
	obs := &recordingObserver{}
	r := NewRouter(local,
		WithResponseCache(cache.NewMemoryCache(10), time.Minute),
		WithRouterObserver(obs))
	ctx := context.Background()

	first := r.Route(ctx, Query{Type: QueryRecipe, Text: "Quick  pasta"})
	second := r.Route(ctx, Query{Type: QueryRecipe, Text: "quick pasta"})
	third := r.Route(ctx, Query{Type: QueryGeneral, Text: "quick pasta"})

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, local.calls())
	assert.Equal(t, []bool{false, true, false}, obs.cached)
}

func TestRouter_ContextSeparatesCacheEntries(t *testing.T) {
	local := &fakeProvider{name: "ollama", reply: "local answer"}
	r := NewRouter(local, WithResponseCache(cache.NewMemoryCache(10), time.Minute))
	ctx := context.Background()

	r.Route(ctx, Query{Type: QueryRecipe, Text: "pasta", Context: "user a"})
	resp := r.Route(ctx, Query{Type: QueryRecipe, Text: "pasta", Context: "user b"})

	assert.False(t, resp.Cached)
	assert.Equal(t, 2, local.calls())
	assert.Contains(t, local.prompts[1], "user b")
}

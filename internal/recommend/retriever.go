package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
)

const (
	SourceVector     = "vector"
	SourceRelational = "relational"

	defaultStoreTimeout     = 3 * time.Second
	defaultBreakerThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
)

var errStoreNotConfigured = errors.New("store not configured")

// RetrieverConfig tunes timeouts and circuit breaking.
type RetrieverConfig struct {
	StoreTimeout     time.Duration
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// HybridRetriever issues the semantic and the structured query concurrently
// and merges the results. A failing source degrades to the other one.
type HybridRetriever struct {
	recipes RecipeStore
	vectors VectorStore
	timeout time.Duration

	recipeBreaker *gobreaker.CircuitBreaker[[]Recipe]
	vectorBreaker *gobreaker.CircuitBreaker[[]VectorHit]

	observer Observer
	logger   *zap.Logger
}

// NewHybridRetriever creates a retriever. Either store may be nil, in which
// case that source is treated as unavailable.
func NewHybridRetriever(recipes RecipeStore, vectors VectorStore, cfg RetrieverConfig, observer Observer, logger *zap.Logger) *HybridRetriever {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = defaultBreakerThreshold
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("retriever")

	return &HybridRetriever{
		recipes:       recipes,
		vectors:       vectors,
		timeout:       cfg.StoreTimeout,
		recipeBreaker: gobreaker.NewCircuitBreaker[[]Recipe](breakerSettings(SourceRelational, cfg, logger)),
		vectorBreaker: gobreaker.NewCircuitBreaker[[]VectorHit](breakerSettings(SourceVector, cfg, logger)),
		observer:      observer,
		logger:        logger,
	}
}

func breakerSettings(name string, cfg RetrieverConfig, logger *zap.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// The caller going away says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
}

// Retrieve returns the deduplicated candidate set for the parameters. It
// fails with ErrNoResultsAvailable only when both sources fail.
func (r *HybridRetriever) Retrieve(ctx context.Context, params SearchParameters, query, userID string) ([]Recipe, error) {
	filter := FilterFor(params)

	var (
		hits              []VectorHit
		relational        []Recipe
		vectorErr, relErr error
		g                 errgroup.Group
	)

	g.Go(func() error {
		hits, vectorErr = r.queryVectors(ctx, query, params.ResultLimit, filter)
		return nil
	})
	g.Go(func() error {
		relational, relErr = r.queryRecipes(ctx, filter)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if vectorErr != nil {
		r.observer.SourceFailed(SourceVector)
		r.logger.Warn("vector source failed, continuing with relational results",
			zap.String("user_id", userID), zap.Error(vectorErr))
	}
	if relErr != nil {
		r.observer.SourceFailed(SourceRelational)
		r.logger.Warn("relational source failed, continuing with vector results",
			zap.String("user_id", userID), zap.Error(relErr))
	}
	if vectorErr != nil && relErr != nil {
		return nil, apperrors.ErrNoResultsAvailable.WithCause(errors.Join(vectorErr, relErr))
	}

	return Merge(hits, relational, params), nil
}

func (r *HybridRetriever) queryVectors(ctx context.Context, query string, k int, filter RecipeFilter) ([]VectorHit, error) {
	if r.vectors == nil {
		return nil, errStoreNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	hits, err := r.vectorBreaker.Execute(func() ([]VectorHit, error) {
		return r.vectors.QuerySimilar(ctx, query, k, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

func (r *HybridRetriever) queryRecipes(ctx context.Context, filter RecipeFilter) ([]Recipe, error) {
	if r.recipes == nil {
		return nil, errStoreNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	recipes, err := r.recipeBreaker.Execute(func() ([]Recipe, error) {
		return r.recipes.FindRecipes(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("relational query: %w", err)
	}
	return recipes, nil
}

// Merge deduplicates vector hits and relational results by recipe id.
// Vector hits outside the similarity radius are dropped. Order is first
// seen: vector hits by ascending distance, then relational results. The
// relational record replaces a vector record with the same id. Candidates
// that need an appliance outside the options, exceed the complexity
// ceiling or contain an avoided ingredient are discarded.
func Merge(hits []VectorHit, relational []Recipe, params SearchParameters) []Recipe {
	inRadius := make([]VectorHit, 0, len(hits))
	for _, h := range hits {
		if h.Distance <= params.SimilarityRadius {
			inRadius = append(inRadius, h)
		}
	}
	sort.SliceStable(inRadius, func(i, j int) bool { return inRadius[i].Distance < inRadius[j].Distance })

	index := make(map[string]int)
	merged := make([]Recipe, 0, len(inRadius)+len(relational))
	for _, h := range inRadius {
		if _, ok := index[h.Recipe.ID]; ok {
			continue
		}
		index[h.Recipe.ID] = len(merged)
		merged = append(merged, h.Recipe)
	}
	for _, rec := range relational {
		if i, ok := index[rec.ID]; ok {
			merged[i] = rec
			continue
		}
		index[rec.ID] = len(merged)
		merged = append(merged, rec)
	}

	avoided := params.AvoidedIngredients()
	out := merged[:0]
	for _, rec := range merged {
		if !withinAppliances(rec, params.ApplianceOptions) {
			continue
		}
		if params.MaxComplexity > 0 && float64(rec.Complexity) > params.MaxComplexity {
			continue
		}
		if containsAny(rec, avoided) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// An empty option set means the user never told us what they own.
func withinAppliances(rec Recipe, options []string) bool {
	if len(options) == 0 {
		return true
	}
	for _, need := range rec.RequiredAppliances {
		if !containsName(options, need) {
			return false
		}
	}
	return true
}

func containsAny(rec Recipe, ingredients []string) bool {
	for _, ing := range ingredients {
		if rec.ContainsIngredient(ing) {
			return true
		}
	}
	return false
}

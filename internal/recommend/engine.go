package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/internal/apperrors"
	"github.com/pageza/flavor-monk/backend/internal/cache"
)

const (
	maxQueryLength = 500
	rankQueryType  = "rank"

	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeCached      = "cached"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Retriever produces candidates for search parameters.
type Retriever interface {
	Retrieve(ctx context.Context, params SearchParameters, query, userID string) ([]Recipe, error)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWeights overrides the default weights.
func WithWeights(w Weights) EngineOption {
	return func(e *Engine) { e.weights = w }
}

// WithCache enables the response cache.
func WithCache(c cache.Cache, ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithObserver sets the telemetry observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l.Named("engine") }
}

// Engine is the ranking pipeline: profile, expansion, parameters,
// retrieval and ranking.
type Engine struct {
	profiles  ProfileStore
	retriever Retriever
	weights   Weights
	cache     cache.Cache
	cacheTTL  time.Duration
	observer  Observer
	logger    *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(profiles ProfileStore, retriever Retriever, opts ...EngineOption) *Engine {
	e := &Engine{
		profiles:  profiles,
		retriever: retriever,
		weights:   DefaultWeights(),
		observer:  nopObserver{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the weights the engine ranks with.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Rank returns the personalized ranking of recipes for query. An empty
// slice is a normal outcome. ErrNoResultsAvailable means no store could be
// reached.
func (e *Engine) Rank(ctx context.Context, query, userID string, intentStrength float64) ([]RankedCandidate, error) {
	start := time.Now()
	ranked, outcome, err := e.rank(ctx, query, userID, intentStrength)
	e.observer.RankCompleted(outcome, time.Since(start))
	return ranked, err
}

func (e *Engine) rank(ctx context.Context, query, userID string, intentStrength float64) ([]RankedCandidate, string, error) {
	normalized, err := validateRankInput(query, userID, intentStrength)
	if err != nil {
		return nil, OutcomeInvalid, err
	}

	cacheKey := normalized + "|" + strconv.FormatFloat(intentStrength, 'g', -1, 64)
	if cached, ok := e.cached(ctx, userID, cacheKey); ok {
		return cached, OutcomeCached, nil
	}

	// The generation is read before the profile, so a ranking built from a
	// profile that changes meanwhile is stored where no reader looks.
	gen, cacheable := e.generation(ctx, userID)

	profile, err := e.profiles.GetUserProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, OutcomeInvalid, apperrors.Input("unknown user %q", userID).WithCause(err)
		}
		return nil, OutcomeError, err
	}

	expansion := Expansion(query, profile, intentStrength, e.weights.Expansion)
	params := BuildSearchParameters(profile, expansion)

	candidates, err := e.retriever.Retrieve(ctx, params, query, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoResultsAvailable) {
			return nil, OutcomeUnavailable, err
		}
		return nil, OutcomeError, err
	}

	ranked := NewRanker(e.weights.Score).Rank(candidates, profile)
	e.logger.Debug("ranked candidates",
		zap.String("user_id", userID),
		zap.Float64("expansion", expansion),
		zap.Int("candidates", len(candidates)))

	if cacheable {
		e.store(ctx, userID, gen, cacheKey, ranked)
	}

	if len(ranked) == 0 {
		return ranked, OutcomeEmpty, nil
	}
	return ranked, OutcomeOK, nil
}

// InvalidateUser drops every cached ranking of the user.
func (e *Engine) InvalidateUser(ctx context.Context, userID string) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.InvalidateScope(ctx, cacheScope(userID))
}

func (e *Engine) cached(ctx context.Context, userID, key string) ([]RankedCandidate, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, ok, err := e.cache.Get(ctx, cacheScope(userID), key)
	if err != nil {
		e.logger.Warn("rank cache read failed", zap.Error(err))
		return nil, false
	}
	e.observer.CacheLookup(ok)
	if !ok {
		return nil, false
	}
	var ranked []RankedCandidate
	if err := json.Unmarshal(data, &ranked); err != nil {
		e.logger.Warn("discarding unreadable rank cache entry", zap.Error(err))
		return nil, false
	}
	return ranked, true
}

func (e *Engine) generation(ctx context.Context, userID string) (uint64, bool) {
	if e.cache == nil {
		return 0, false
	}
	gen, err := e.cache.Generation(ctx, cacheScope(userID))
	if err != nil {
		e.logger.Warn("rank cache generation read failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (e *Engine) store(ctx context.Context, userID string, gen uint64, key string, ranked []RankedCandidate) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(ranked)
	if err != nil {
		e.logger.Warn("failed to encode rank cache entry", zap.Error(err))
		return
	}
	if err := e.cache.SetAt(ctx, cacheScope(userID), gen, key, data, e.cacheTTL); err != nil {
		e.logger.Warn("rank cache write failed", zap.Error(err))
	}
}

func cacheScope(userID string) string {
	return rankQueryType + ":" + userID
}

func validateRankInput(query, userID string, intentStrength float64) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.Input("user id is required")
	}
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return "", apperrors.Input("query must not be blank")
	}
	if len(query) > maxQueryLength {
		return "", apperrors.Input("query exceeds %d characters", maxQueryLength)
	}
	if math.IsNaN(intentStrength) || intentStrength < 0 || intentStrength > 1 {
		return "", apperrors.Input("intent strength must be within [0,1]")
	}
	return normalized, nil
}

// NormalizeQuery lowercases the query and collapses whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

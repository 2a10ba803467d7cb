// Package app wires configuration into the running services shared by the
// API and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/api"
	"github.com/pageza/flavor-monk/backend/internal/cache"
	"github.com/pageza/flavor-monk/backend/internal/database"
	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/metrics"
	"github.com/pageza/flavor-monk/backend/internal/middleware"
	"github.com/pageza/flavor-monk/backend/internal/queue"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/worker"
)

// App holds every long-lived component.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Collector
	Queue   queue.Queue

	Auth         *service.AuthService
	Profiles     *service.ProfileService
	Recipes      *service.RecipeService
	Vectors      *service.VectorService
	Interactions *service.InteractionService
	Feedback     *service.FeedbackService
	Quality      *service.QualityService
	Kojo         *service.KojoService
	Engine       *recommend.Engine
	Router       *llm.Router

	closers []func() error
}

// New connects to the configured backends and builds the services. Redis is
// optional: without it caches, the queue and rate limiting stay in process.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.NewCollector()}

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if !cfg.Redis.Disabled {
		client, err := database.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-process caches and queue", zap.Error(err))
		} else {
			a.Redis = client
			a.closers = append(a.closers, client.Close)
		}
	}

	var gemini *llm.GeminiClient
	if cfg.LLM.GeminiAPIKey != "" {
		gemini, err = llm.NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, gemini.Close)
	}

	embedder, err := newEmbedder(cfg.LLM, gemini)
	if err != nil {
		a.Close()
		return nil, err
	}

	archive, err := newArchive(ctx, cfg.Archive)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Recipes = service.NewRecipeService(db, logger)
	a.Vectors = service.NewVectorService(db, a.Recipes, embedder, cfg.LLM.EmbeddingModel, logger)
	a.Recipes.SetIndexer(a.Vectors)

	a.Profiles = service.NewProfileService(db, nil, logger)
	retriever := recommend.NewHybridRetriever(a.Recipes, a.Vectors, recommend.RetrieverConfig{
		StoreTimeout:     cfg.Ranking.StoreTimeout,
		BreakerThreshold: cfg.Ranking.BreakerThreshold,
		BreakerTimeout:   cfg.Ranking.BreakerTimeout,
	}, a.Metrics, logger)
	a.Engine = recommend.NewEngine(a.Profiles, retriever,
		recommend.WithWeights(cfg.Ranking.Weights),
		recommend.WithCache(a.newCache(cfg.Ranking.CacheCapacity), cfg.Ranking.CacheTTL),
		recommend.WithObserver(a.Metrics),
		recommend.WithLogger(logger),
	)
	a.Profiles.SetInvalidator(a.Engine)

	a.Quality = service.NewQualityService(db, archive, service.DefaultQualityThresholds(), logger)
	a.Interactions = service.NewInteractionService(db, a.Quality, a.Engine, logger)
	a.Feedback = service.NewFeedbackService(db, a.Quality, a.Engine, logger)
	a.Auth = service.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	router, err := a.newRouter(cfg.LLM, gemini)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Router = router
	a.Kojo = service.NewKojoService(a.Engine, a.Profiles, a.Recipes, router, logger)

	if a.Redis != nil {
		a.Queue = queue.NewRedisQueue(a.Redis, cfg.Queue.Name, queue.Options{
			VisibilityTimeout: cfg.Queue.VisibilityTimeout,
			MaxAttempts:       cfg.Queue.MaxAttempts,
		})
	} else {
		a.Queue = queue.NewMemoryQueue(queue.Options{
			VisibilityTimeout: cfg.Queue.VisibilityTimeout,
			MaxAttempts:       cfg.Queue.MaxAttempts,
		})
	}

	return a, nil
}

func (a *App) newCache(capacity int) cache.Cache {
	if a.Redis != nil {
		return cache.NewRedisCache(a.Redis)
	}
	return cache.NewMemoryCache(capacity)
}

func newEmbedder(cfg config.LLMConfig, gemini *llm.GeminiClient) (llm.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return llm.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.Timeout), nil
	case "gemini":
		if gemini == nil {
			return nil, errors.New("gemini embeddings need llm.gemini_api_key")
		}
		return llm.NewGeminiEmbedder(gemini, cfg.EmbeddingModel), nil
	default:
		return llm.NewHashingEmbedder(0), nil
	}
}

var _ service.ArchiveLinker = (*config.S3Config)(nil)

func newArchive(ctx context.Context, cfg config.ArchiveConfig) (service.ArchiveStore, error) {
	if cfg.Provider == "s3" {
		s3Cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3Cfg, nil
	}
	return service.NewLocalArchive(cfg.LocalDir), nil
}

func (a *App) newRouter(cfg config.LLMConfig, gemini *llm.GeminiClient) (*llm.Router, error) {
	opts := []llm.RouterOption{
		llm.WithResponseCache(a.newCache(0), cfg.CacheTTL),
		llm.WithRouterObserver(a.Metrics),
		llm.WithRouterLogger(a.Logger),
	}

	var cloud llm.Provider
	switch cfg.CloudProvider {
	case "deepseek":
		if cfg.DeepSeekAPIKey != "" {
			p, err := llm.NewDeepSeekProvider(cfg, a.Logger)
			if err != nil {
				return nil, err
			}
			cloud = p
		}
	case "gemini":
		if gemini != nil {
			cloud = llm.NewGeminiProvider(gemini, cfg.GeminiModel)
		}
	}
	if cloud != nil {
		opts = append(opts, llm.WithCloud(cloud, llm.NewBudgetTracker(cfg.DailyCloudBudget, nil)))
	} else {
		a.Logger.Info("no cloud model configured, complex queries stay local")
	}

	local := llm.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout, a.Logger)
	return llm.NewRouter(local, opts...), nil
}

// Dependencies returns what the HTTP handlers need.
func (a *App) Dependencies() api.Dependencies {
	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, a.DB) },
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}

	return api.Dependencies{
		Auth:         a.Auth,
		Profiles:     a.Profiles,
		Recipes:      a.Recipes,
		Quality:      a.Quality,
		Feedback:     a.Feedback,
		Ranker:       a.Engine,
		Kojo:         a.Kojo,
		Queue:        a.Queue,
		HealthChecks: checks,
		RateLimiter: middleware.NewRateLimiter(a.Redis, middleware.RateLimitConfig{
			Window: a.Config.Server.RateLimitWindow,
			Limit:  a.Config.Server.RateLimitRequests,
		}, a.Logger),
	}
}

// Worker builds the feedback processor over the app's queue.
func (a *App) Worker() *worker.FeedbackProcessor {
	return worker.NewFeedbackProcessor(a.Queue, a.Interactions, a.Feedback, worker.Config{
		PollInterval:      a.Config.Queue.PollInterval,
		VisibilityTimeout: a.Config.Queue.VisibilityTimeout,
	}, a.Metrics, a.Logger)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("failed to close app: %w", errors.Join(errs...))
	}
	return nil
}

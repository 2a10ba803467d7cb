package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks the configuration and reports every problem at once.
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if cfg.Server.Port == "" {
		add("server.port", "is required")
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" {
			add("database.host", "is required for postgres")
		}
		if cfg.Database.Name == "" {
			add("database.name", "is required for postgres")
		}
		if cfg.Environment.IsProduction() && cfg.Database.Password == "" {
			add("database.password", "db_password secret is required in production")
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			add("database.sqlite_path", "is required for sqlite")
		}
	default:
		add("database.driver", fmt.Sprintf("unsupported driver %q", cfg.Database.Driver))
	}

	if cfg.Auth.JWTSecret == "" {
		add("auth.jwt_secret", "jwt_secret secret is required")
	}
	if cfg.Auth.TokenTTL <= 0 {
		add("auth.token_ttl", "must be positive")
	}

	switch cfg.Archive.Provider {
	case "local":
		if cfg.Archive.LocalDir == "" {
			add("archive.local_dir", "is required for the local archive")
		}
	case "s3":
		if cfg.Archive.Bucket == "" {
			add("archive.bucket", "is required for the s3 archive")
		}
	default:
		add("archive.provider", fmt.Sprintf("unsupported provider %q", cfg.Archive.Provider))
	}

	switch cfg.LLM.CloudProvider {
	case "", "deepseek", "gemini":
	default:
		add("llm.cloud_provider", fmt.Sprintf("unsupported provider %q", cfg.LLM.CloudProvider))
	}
	switch cfg.LLM.EmbeddingProvider {
	case "hashing", "ollama":
	case "gemini":
		if cfg.LLM.GeminiAPIKey == "" {
			add("llm.gemini_api_key", "is required for gemini embeddings")
		}
	default:
		add("llm.embedding_provider", fmt.Sprintf("unsupported provider %q", cfg.LLM.EmbeddingProvider))
	}
	if cfg.LLM.DailyCloudBudget < 0 {
		add("llm.daily_cloud_budget", "must not be negative")
	}

	w := cfg.Ranking.Weights
	scoreWeights := []float64{w.Score.Health, w.Score.Preference, w.Score.Behavioral, w.Score.Complexity, w.Score.Historical, w.Score.Novelty}
	expansionWeights := []float64{w.Expansion.QuerySpecificity, w.Expansion.ConstraintStrictness, w.Expansion.ExploratoryIntent, w.Expansion.UserExperience, w.Expansion.TimePressure}
	if !validWeights(scoreWeights) {
		add("ranking.weights.score", "must be non-negative with a positive sum")
	}
	if !validWeights(expansionWeights) {
		add("ranking.weights.expansion", "must be non-negative with a positive sum")
	}

	if cfg.Queue.MaxAttempts < 1 {
		add("queue.max_attempts", "must be at least 1")
	}

	if len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(msgs, "\n"))
	}
	return nil
}

func validWeights(ws []float64) bool {
	var sum float64
	for _, w := range ws {
		if w < 0 {
			return false
		}
		sum += w
	}
	return sum > 0
}

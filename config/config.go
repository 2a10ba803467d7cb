package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

const envPrefix = "FLAVORMONK"

// Config holds all configuration for the application
type Config struct {
	Environment Environment    `mapstructure:"-"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Log         LogConfig      `mapstructure:"log"`
	Ranking     RankingConfig  `mapstructure:"ranking"`
	LLM         LLMConfig      `mapstructure:"llm"`
	Queue       QueueConfig    `mapstructure:"queue"`
	Archive     ArchiveConfig  `mapstructure:"archive"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              string        `mapstructure:"port"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	URL      string `mapstructure:"url"`
	Disabled bool   `mapstructure:"disabled"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Development bool   `mapstructure:"development"`
}

type RankingConfig struct {
	StoreTimeout     time.Duration     `mapstructure:"store_timeout"`
	CacheTTL         time.Duration     `mapstructure:"cache_ttl"`
	CacheCapacity    int               `mapstructure:"cache_capacity"`
	BreakerThreshold uint32            `mapstructure:"breaker_threshold"`
	BreakerTimeout   time.Duration     `mapstructure:"breaker_timeout"`
	Weights          recommend.Weights `mapstructure:"weights"`
}

type LLMConfig struct {
	OllamaURL         string        `mapstructure:"ollama_url"`
	OllamaModel       string        `mapstructure:"ollama_model"`
	EmbeddingProvider string        `mapstructure:"embedding_provider"`
	EmbeddingModel    string        `mapstructure:"embedding_model"`
	CloudProvider     string        `mapstructure:"cloud_provider"`
	DeepSeekURL       string        `mapstructure:"deepseek_url"`
	DeepSeekModel     string        `mapstructure:"deepseek_model"`
	DeepSeekAPIKey    string        `mapstructure:"deepseek_api_key"`
	GeminiModel       string        `mapstructure:"gemini_model"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	DailyCloudBudget  float64       `mapstructure:"daily_cloud_budget"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

type QueueConfig struct {
	Name              string        `mapstructure:"name"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InProcess         bool          `mapstructure:"in_process"`
}

type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	LocalDir string `mapstructure:"local_dir"`
}

// secretKeys maps docker secret file names onto configuration keys.
var secretKeys = map[string]string{
	"db_password":      "database.password",
	"jwt_secret":       "auth.jwt_secret",
	"redis_password":   "redis.password",
	"deepseek_api_key": "llm.deepseek_api_key",
	"gemini_api_key":   "llm.gemini_api_key",
}

// LoadConfig reads defaults, an optional config file, FLAVORMONK_* environment
// variables and docker secrets, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir := os.Getenv("FLAVORMONK_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for secret, key := range secretKeys {
		if value := readSecret(secret); value != "" {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Environment = GetEnvironment()

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_requests", 100)
	v.SetDefault("server.rate_limit_window", time.Minute)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "flavormonk")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "flavormonk.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.disabled", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.development", false)

	w := recommend.DefaultWeights()
	v.SetDefault("ranking.store_timeout", 3*time.Second)
	v.SetDefault("ranking.cache_ttl", 10*time.Minute)
	v.SetDefault("ranking.cache_capacity", 1000)
	v.SetDefault("ranking.breaker_threshold", 5)
	v.SetDefault("ranking.breaker_timeout", 30*time.Second)
	v.SetDefault("ranking.weights.expansion.query_specificity", w.Expansion.QuerySpecificity)
	v.SetDefault("ranking.weights.expansion.constraint_strictness", w.Expansion.ConstraintStrictness)
	v.SetDefault("ranking.weights.expansion.exploratory_intent", w.Expansion.ExploratoryIntent)
	v.SetDefault("ranking.weights.expansion.user_experience", w.Expansion.UserExperience)
	v.SetDefault("ranking.weights.expansion.time_pressure", w.Expansion.TimePressure)
	v.SetDefault("ranking.weights.score.health", w.Score.Health)
	v.SetDefault("ranking.weights.score.preference", w.Score.Preference)
	v.SetDefault("ranking.weights.score.behavioral", w.Score.Behavioral)
	v.SetDefault("ranking.weights.score.complexity", w.Score.Complexity)
	v.SetDefault("ranking.weights.score.historical", w.Score.Historical)
	v.SetDefault("ranking.weights.score.novelty", w.Score.Novelty)

	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.ollama_model", "llama3.2")
	v.SetDefault("llm.embedding_provider", "hashing")
	v.SetDefault("llm.embedding_model", "nomic-embed-text")
	v.SetDefault("llm.cloud_provider", "deepseek")
	v.SetDefault("llm.deepseek_url", "https://api.deepseek.com/v1/chat/completions")
	v.SetDefault("llm.deepseek_model", "deepseek-chat")
	v.SetDefault("llm.deepseek_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-1.5-flash")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.daily_cloud_budget", 5.0)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.cache_ttl", time.Hour)

	v.SetDefault("queue.name", "flavormonk:feedback")
	v.SetDefault("queue.visibility_timeout", time.Minute)
	v.SetDefault("queue.poll_interval", time.Second)
	v.SetDefault("queue.max_attempts", 5)
	v.SetDefault("queue.in_process", true)

	v.SetDefault("archive.provider", "local")
	v.SetDefault("archive.bucket", "flavormonk-recipe-archive")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.local_dir", "./archive")
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

// Package config loads service configuration from file and
// environment using Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	AI       AIConfig       `mapstructure:"ai"`
	Search   SearchConfig   `mapstructure:"search"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
	// Path is used by the sqlite driver only.
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AIConfig struct {
	// Chat completion backend for recipe generation.
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	APIKeyFile string        `mapstructure:"api_key_file"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxTokens  int           `mapstructure:"max_tokens"`

	// Embedding backend.
	EmbeddingBaseURL    string `mapstructure:"embedding_base_url"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
}

type SearchConfig struct {
	MinSimilarity float64 `mapstructure:"min_similarity"`
	DefaultLimit  int     `mapstructure:"default_limit"`
}

// RankingConfig exposes the personalization boost constants so they
// can be tuned without a rebuild.
type RankingConfig struct {
	CuisineBoostCap     float64 `mapstructure:"cuisine_boost_cap"`
	DietaryBoost        float64 `mapstructure:"dietary_boost"`
	IngredientBoostStep float64 `mapstructure:"ingredient_boost_step"`
	IngredientBoostCap  float64 `mapstructure:"ingredient_boost_cap"`
	ReusePenalty        float64 `mapstructure:"reuse_penalty"`
}

type PlannerConfig struct {
	SlotDelay      time.Duration `mapstructure:"slot_delay"`
	HistoryWindow  time.Duration `mapstructure:"history_window"`
	GenerationTemp float64       `mapstructure:"generation_temp"`
}

type CacheConfig struct {
	ResponseTTL time.Duration `mapstructure:"response_ttl"`
	// Requests with more include/avoid ingredient filters than this
	// are too specific to be worth caching.
	MaxCachedIngredientFilters int `mapstructure:"max_cached_ingredient_filters"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Development bool   `mapstructure:"development"`
}

// Load reads config.yaml (if present) and MEALPLANNER_* environment
// variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("MEALPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "meal-planner")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mealplanner")
	v.SetDefault("database.user", "mealplanner")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "mealplanner.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("ai.base_url", "https://api.deepseek.com")
	v.SetDefault("ai.model", "deepseek-chat")
	v.SetDefault("ai.timeout", "120s")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.embedding_base_url", "http://localhost:11434")
	v.SetDefault("ai.embedding_model", "nomic-embed-text")
	v.SetDefault("ai.embedding_dimensions", 768)

	v.SetDefault("search.min_similarity", 0.75)
	v.SetDefault("search.default_limit", 10)

	v.SetDefault("ranking.cuisine_boost_cap", 0.2)
	v.SetDefault("ranking.dietary_boost", 0.15)
	v.SetDefault("ranking.ingredient_boost_step", 0.02)
	v.SetDefault("ranking.ingredient_boost_cap", 0.1)
	v.SetDefault("ranking.reuse_penalty", 0.3)

	v.SetDefault("planner.slot_delay", "500ms")
	v.SetDefault("planner.history_window", "720h")
	v.SetDefault("planner.generation_temp", 0.7)

	v.SetDefault("cache.response_ttl", "1h")
	v.SetDefault("cache.max_cached_ingredient_filters", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.development", false)
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		return fmt.Errorf("search.min_similarity must be in [0,1], got %f", c.Search.MinSimilarity)
	}
	if c.Ranking.ReusePenalty < 0 {
		return fmt.Errorf("ranking.reuse_penalty must be non-negative")
	}
	return nil
}

// GetDSN builds the connection string for the configured driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Addr returns host:port for the redis client.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

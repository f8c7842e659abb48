package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the investigation pipeline.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Server    ServerConfig    `mapstructure:"server"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains the chat/embedding model settings.
type LLMConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	ChatModel      string        `mapstructure:"chat_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// PipelineConfig tunes the retrieval loops.
type PipelineConfig struct {
	TopK             int           `mapstructure:"top_k"`
	MaxNewsResults   int           `mapstructure:"max_news_results"`
	NewsDaysBack     int           `mapstructure:"news_days_back"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`
	HistoryMaxTurns  int           `mapstructure:"history_max_turns"`
	AllowLocalOnly   bool          `mapstructure:"allow_local_only"`
	RelevanceCutoff  float64       `mapstructure:"relevance_cutoff"`
	SimilarityMetric string        `mapstructure:"similarity_metric"`
	EmbeddingDim     int           `mapstructure:"embedding_dim"`
	ChunkSize        int           `mapstructure:"chunk_size"`
	ChunkOverlap     int           `mapstructure:"chunk_overlap"`
}

// SourcesConfig contains external data source settings.
type SourcesConfig struct {
	NewsAPI NewsAPIConfig `mapstructure:"newsapi"`
}

// NewsAPIConfig contains NewsAPI settings.
type NewsAPIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	Language   string        `mapstructure:"language"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisConfig contains Redis connection settings for conversation history.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains telemetry and monitoring settings.
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("sleuth_config")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SLEUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional, defaults and env carry a bare deployment.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")

	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.chat_model", "gpt-4o-mini")
	viper.SetDefault("llm.embedding_model", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 1000)
	viper.SetDefault("llm.max_retries", 3)
	viper.SetDefault("llm.timeout", "60s")

	viper.SetDefault("pipeline.top_k", 5)
	viper.SetDefault("pipeline.max_news_results", 5)
	viper.SetDefault("pipeline.news_days_back", 7)
	viper.SetDefault("pipeline.query_timeout", "2m")
	viper.SetDefault("pipeline.history_max_turns", 5)
	viper.SetDefault("pipeline.allow_local_only", false)
	viper.SetDefault("pipeline.relevance_cutoff", 0.0)
	viper.SetDefault("pipeline.similarity_metric", "cosine")
	viper.SetDefault("pipeline.embedding_dim", 1536)
	viper.SetDefault("pipeline.chunk_size", 1000)
	viper.SetDefault("pipeline.chunk_overlap", 200)

	viper.SetDefault("sources.newsapi.endpoint", "https://newsapi.org/v2")
	viper.SetDefault("sources.newsapi.language", "en")
	viper.SetDefault("sources.newsapi.max_results", 20)
	viper.SetDefault("sources.newsapi.timeout", "15s")

	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.user", "sleuth")
	viper.SetDefault("storage.postgres.password", "")
	viper.SetDefault("storage.postgres.dbname", "sleuth")
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.postgres.timeout", "5s")

	viper.SetDefault("storage.redis.host", "localhost")
	viper.SetDefault("storage.redis.port", 6379)
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.timeout", "5s")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)

	viper.SetDefault("server.port", 8000)
}

// overrideFromEnv overrides configuration with environment variables
// for credentials and connection endpoints.
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		viper.Set("llm.base_url", base)
	}
	if apiKey := os.Getenv("NEWSAPI_API_KEY"); apiKey != "" {
		viper.Set("sources.newsapi.api_key", apiKey)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		viper.Set("storage.postgres.host", host)
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.postgres.port", p)
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		viper.Set("storage.postgres.user", user)
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		viper.Set("storage.postgres.password", pass)
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		viper.Set("storage.postgres.dbname", db)
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		viper.Set("storage.redis.password", password)
	}
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Pipeline.TopK <= 0 {
		return fmt.Errorf("pipeline.top_k must be positive, got %d", config.Pipeline.TopK)
	}
	if config.Pipeline.HistoryMaxTurns < 0 {
		return fmt.Errorf("pipeline.history_max_turns must not be negative")
	}
	switch config.Pipeline.SimilarityMetric {
	case "", "cosine", "l2", "inner_product":
	default:
		return fmt.Errorf("pipeline.similarity_metric %q is not supported", config.Pipeline.SimilarityMetric)
	}
	if config.Pipeline.ChunkOverlap >= config.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline.chunk_overlap (%d) must be smaller than pipeline.chunk_size (%d)",
			config.Pipeline.ChunkOverlap, config.Pipeline.ChunkSize)
	}
	if config.LLM.ChatModel == "" {
		return fmt.Errorf("llm.chat_model must be set")
	}
	if config.LLM.EmbeddingModel == "" {
		return fmt.Errorf("llm.embedding_model must be set")
	}
	return nil
}

// DSN assembles a lib/pq connection string, preferring an explicit URL.
func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// Addr returns the host:port pair for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.ChatModel != "gpt-4o-mini" {
		t.Errorf("chat model = %q", cfg.LLM.ChatModel)
	}
	if cfg.LLM.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("embedding model = %q", cfg.LLM.EmbeddingModel)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("api key = %q, want the environment override", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.TopK != 5 || cfg.Pipeline.EmbeddingDim != 1536 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.ChunkSize != 1000 || cfg.Pipeline.ChunkOverlap != 200 {
		t.Errorf("chunking = %d/%d", cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	}
	if cfg.Pipeline.QueryTimeout != 2*time.Minute {
		t.Errorf("query timeout = %v", cfg.Pipeline.QueryTimeout)
	}
	if cfg.Pipeline.MaxNewsResults != 5 {
		t.Errorf("max news results = %d", cfg.Pipeline.MaxNewsResults)
	}
	if cfg.Pipeline.SimilarityMetric != "cosine" {
		t.Errorf("similarity metric = %q", cfg.Pipeline.SimilarityMetric)
	}
	if cfg.Sources.NewsAPI.Endpoint != "https://newsapi.org/v2" {
		t.Errorf("newsapi endpoint = %q", cfg.Sources.NewsAPI.Endpoint)
	}
	if cfg.Sources.NewsAPI.Timeout != 15*time.Second {
		t.Errorf("newsapi timeout = %v", cfg.Sources.NewsAPI.Timeout)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM: LLMConfig{ChatModel: "m", EmbeddingModel: "e"},
			Pipeline: PipelineConfig{
				TopK:      5,
				ChunkSize: 1000,
			},
		}
	}

	if err := validateConfig(valid()); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	c := valid()
	c.Pipeline.TopK = 0
	if err := validateConfig(c); err == nil {
		t.Error("zero top_k must be rejected")
	}

	c = valid()
	c.Pipeline.ChunkOverlap = 1000
	if err := validateConfig(c); err == nil {
		t.Error("overlap >= chunk size must be rejected")
	}

	c = valid()
	c.LLM.ChatModel = ""
	if err := validateConfig(c); err == nil {
		t.Error("missing chat model must be rejected")
	}

	c = valid()
	c.Pipeline.SimilarityMetric = "dot"
	if err := validateConfig(c); err == nil {
		t.Error("unknown similarity metric must be rejected")
	}

	c = valid()
	c.Pipeline.SimilarityMetric = "l2"
	if err := validateConfig(c); err != nil {
		t.Errorf("l2 metric rejected: %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "sleuth", SSLMode: "disable"}
	want := "postgres://u:p@db:5433/sleuth?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}

	c.URL = "postgres://explicit"
	if got := c.DSN(); got != "postgres://explicit" {
		t.Errorf("explicit URL must win, got %q", got)
	}
}

func TestRedisAddr(t *testing.T) {
	c := RedisConfig{Host: "cache", Port: 6380}
	if got := c.Addr(); got != "cache:6380" {
		t.Errorf("Addr = %q", got)
	}
}

package config

import (
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/docchat/internal/openai"
	"github.com/cloo-solutions/docchat/internal/service"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goopenai "github.com/sashabaranov/go-openai"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Model access. Any OpenAI-compatible endpoint works through OpenAIBaseURL.
	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	Temperature         float32 `envconfig:"TEMPERATURE" default:"0.7"`
	EmbedBatchSize      int     `envconfig:"EMBED_BATCH_SIZE" default:"100"`
	ModelRateLimit      float64 `envconfig:"MODEL_RATE_LIMIT" default:"10"`
	ModelRateBurst      int     `envconfig:"MODEL_RATE_BURST" default:"5"`

	ChunkMaxChars  int `envconfig:"CHUNK_MAX_CHARS" default:"500"`
	ChunkMinChars  int `envconfig:"CHUNK_MIN_CHARS" default:"350"`
	ChunkOverlap   int `envconfig:"CHUNK_OVERLAP" default:"50"`
	ChunkMaxChunks int `envconfig:"CHUNK_MAX_CHUNKS" default:"0"`

	RetrievalTopK   int `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	ContextMaxChars int `envconfig:"CONTEXT_MAX_CHARS" default:"8000"`
	HistoryWindow   int `envconfig:"HISTORY_WINDOW" default:"0"`

	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"5242880"`
	JobPollInterval time.Duration `envconfig:"JOB_POLL_INTERVAL" default:"2s"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects settings that would make chunking, retrieval or the
// index worker misbehave.
func (c *Config) Validate() error {
	if c.ChunkMaxChars <= 0 {
		return fmt.Errorf("CHUNK_MAX_CHARS must be positive, got %d", c.ChunkMaxChars)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxChars {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, %d), got %d", c.ChunkMaxChars, c.ChunkOverlap)
	}
	if c.ChunkMinChars < 0 || c.ChunkMinChars > c.ChunkMaxChars {
		return fmt.Errorf("CHUNK_MIN_CHARS must be in [0, %d], got %d", c.ChunkMaxChars, c.ChunkMinChars)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("HISTORY_WINDOW cannot be negative, got %d", c.HistoryWindow)
	}
	if c.JobPollInterval <= 0 {
		return fmt.Errorf("JOB_POLL_INTERVAL must be positive, got %s", c.JobPollInterval)
	}
	return nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// ChunkConfig returns the chunking policy.
func (c *Config) ChunkConfig() service.ChunkConfig {
	return service.ChunkConfig{
		MaxChars:  c.ChunkMaxChars,
		MinChars:  c.ChunkMinChars,
		Overlap:   c.ChunkOverlap,
		MaxChunks: c.ChunkMaxChunks,
	}
}

// OpenAIConfig returns the model client settings.
func (c *Config) OpenAIConfig() openai.Config {
	return openai.Config{
		APIKey:              c.OpenAIAPIKey,
		BaseURL:             c.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(c.EmbeddingModel),
		EmbeddingDimensions: c.EmbeddingDimensions,
		ChatModel:           c.ChatModel,
		Temperature:         c.Temperature,
		RateLimit:           c.ModelRateLimit,
		RateBurst:           c.ModelRateBurst,
	}
}

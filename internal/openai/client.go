package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for streaming chat completions
	DefaultChatModel = openai.GPT4oMini
	// DefaultTemperature matches the sampling used for conversational answers
	DefaultTemperature = 0.7
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// IndexedEmbedding is one vector from a batch response. Index refers to the
// position of the source text in the request.
type IndexedEmbedding struct {
	Index  int
	Vector []float32
}

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([]IndexedEmbedding, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api        EmbeddingAPI
	chat       ChatAPI
	dimensions int
	limiter    *rate.Limiter
}

type OpenAIAdapter struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	chatModel   string
	temperature float32
}

func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel, chatModel string, temperature float32) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIAdapter{
		client:      client,
		model:       model,
		chatModel:   chatModel,
		temperature: temperature,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings for a batch of texts.
// Items are returned with the index the API reported for them, which is not
// necessarily their position in the response.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([]IndexedEmbedding, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	out := make([]IndexedEmbedding, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, IndexedEmbedding{Index: d.Index, Vector: d.Embedding})
	}
	return out, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	Temperature         float32
	// RateLimit is the sustained number of model calls per second; zero disables throttling.
	RateLimit float64
	RateBurst int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey, Temperature: DefaultTemperature})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}

	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	adapter := NewOpenAIAdapter(openai.NewClientWithConfig(oaCfg), cfg.EmbeddingModel, cfg.ChatModel, cfg.Temperature)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		api:        adapter,
		chat:       adapter,
		dimensions: dimensions,
		limiter:    limiter,
	}
}

// Dimensions returns the vector length every embedding must have.
func (c *Client) Dimensions() int {
	return c.dimensions
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	return nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	items, err := c.api.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	var embedding []float32
	for _, item := range items {
		if item.Index == 0 {
			embedding = item.Vector
			break
		}
	}
	if len(embedding) == 0 {
		return []float32{}, nil
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}

	return embedding, nil
}

// GenerateEmbeddings embeds texts in a single call. The result is not
// positionally aligned with texts; callers must use IndexedEmbedding.Index.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([]IndexedEmbedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	items, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	return items, nil
}

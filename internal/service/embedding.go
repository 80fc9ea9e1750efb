package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/logging"
	"github.com/cloo-solutions/docchat/internal/metrics"
	"github.com/cloo-solutions/docchat/internal/openai"
	"go.uber.org/zap"
)

// DefaultEmbedBatchSize is the number of texts sent per upstream call.
const DefaultEmbedBatchSize = 100

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([]openai.IndexedEmbedding, error)
	Dimensions() int
}

// EmbeddingGateway turns text into vectors. A gateway built without a
// client reports domain.ErrServiceUnavailable from every call.
type EmbeddingGateway struct {
	client    EmbeddingClient
	batchSize int
	logger    *zap.Logger
}

// NewEmbeddingGateway creates a gateway. client may be nil when no model
// credentials are configured.
func NewEmbeddingGateway(client EmbeddingClient, batchSize int, logger *zap.Logger) *EmbeddingGateway {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &EmbeddingGateway{
		client:    client,
		batchSize: batchSize,
		logger:    logging.OrNop(logger),
	}
}

// Available reports whether a model client is configured.
func (g *EmbeddingGateway) Available() bool {
	return g.client != nil
}

// EmbedOne embeds a single text. A zero-length vector is returned only when
// the model produced no embedding at all.
func (g *EmbeddingGateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if g.client == nil {
		return nil, domain.ErrServiceUnavailable
	}

	start := time.Now()
	vector, err := g.client.GenerateEmbedding(ctx, text)
	metrics.ObserveEmbedding("embed_one", start, 1, err)
	if err != nil {
		return nil, domain.ErrEmbeddingFailed.WithCause(err)
	}
	return vector, nil
}

// EmbedMany embeds texts in batches and returns one pair per text that was
// embedded, ordered by Index. Texts whose batch failed, or whose vector was
// missing or malformed, are absent from the result; callers must match on
// the pair and never on position. It fails only when nothing could be
// embedded because every batch failed.
func (g *EmbeddingGateway) EmbedMany(ctx context.Context, texts []string) ([]domain.EmbeddedText, error) {
	if g.client == nil {
		return nil, domain.ErrServiceUnavailable
	}
	if len(texts) == 0 {
		return []domain.EmbeddedText{}, nil
	}

	dims := g.client.Dimensions()
	out := make([]domain.EmbeddedText, 0, len(texts))
	var failed int
	var lastErr error

	for offset := 0; offset < len(texts); offset += g.batchSize {
		end := min(offset+g.batchSize, len(texts))
		batch := texts[offset:end]

		start := time.Now()
		items, err := g.client.GenerateEmbeddings(ctx, batch)
		metrics.ObserveEmbedding("embed_many", start, len(batch), err)
		if err != nil {
			g.logger.Warn("embedding batch failed",
				zap.Int("offset", offset),
				zap.Int("size", len(batch)),
				zap.Error(err),
			)
			metrics.EmbeddingDropped.Add(float64(len(batch)))
			failed++
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		accepted := pairBatch(batch, offset, items, dims, &out)
		if dropped := len(batch) - accepted; dropped > 0 {
			g.logger.Warn("embedding batch returned fewer vectors than texts",
				zap.Int("offset", offset),
				zap.Int("size", len(batch)),
				zap.Int("dropped", dropped),
			)
			metrics.EmbeddingDropped.Add(float64(dropped))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, domain.ErrEmbeddingFailed.WithCause(err)
	}
	batches := (len(texts) + g.batchSize - 1) / g.batchSize
	if failed == batches {
		return nil, domain.ErrEmbeddingFailed.WithCause(fmt.Errorf("all %d batches failed: %w", batches, lastErr))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// pairBatch appends a pair for every usable item and returns how many were
// accepted. Items are matched to texts by the index the API reported; items
// with an out-of-range or repeated index, or a vector of the wrong length,
// are skipped.
func pairBatch(batch []string, offset int, items []openai.IndexedEmbedding, dims int, out *[]domain.EmbeddedText) int {
	seen := make(map[int]bool, len(items))
	accepted := 0
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(batch) || seen[item.Index] {
			continue
		}
		if len(item.Vector) == 0 || (dims > 0 && len(item.Vector) != dims) {
			continue
		}
		seen[item.Index] = true
		*out = append(*out, domain.EmbeddedText{
			Index:  offset + item.Index,
			Text:   batch[item.Index],
			Vector: item.Vector,
		})
		accepted++
	}
	return accepted
}


package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/metrics"
	"github.com/cloo-solutions/docchat/internal/telemetry"
)

const (
	// DefaultTopK is the number of chunks retrieved when the caller passes k <= 0.
	DefaultTopK = 5
	// DefaultContextMaxChars caps the assembled context, in runes.
	DefaultContextMaxChars = 8000
	// ContextSeparator joins chunk texts in the assembled context.
	ContextSeparator = "\n\n---\n\n"
)

// DocumentSource provides read-only chunk snapshots.
type DocumentSource interface {
	Get(id string) (*domain.Document, error)
}

// QueryEmbedder embeds a single query.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// RetrieverService ranks a document's chunks against a query.
type RetrieverService struct {
	embedder        QueryEmbedder
	index           DocumentSource
	topK            int
	maxContextChars int
}

// NewRetrieverService creates a new RetrieverService instance
func NewRetrieverService(embedder QueryEmbedder, index DocumentSource, topK, maxContextChars int) *RetrieverService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxContextChars <= 0 {
		maxContextChars = DefaultContextMaxChars
	}
	return &RetrieverService{
		embedder:        embedder,
		index:           index,
		topK:            topK,
		maxContextChars: maxContextChars,
	}
}

// Retrieve returns at most k chunks of documentID ordered by descending
// cosine similarity to query, ties going to the lower chunk index. The
// chunk set is the one indexed when the call started, even if the document
// is re-indexed while the query is being embedded.
func (s *RetrieverService) Retrieve(ctx context.Context, documentID, query string, k int) (*domain.RetrievalResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrieverService.Retrieve", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "retrieve",
	})
	defer span.End()

	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidQuery
	}
	if k <= 0 {
		k = s.topK
	}

	doc, err := s.index.Get(documentID)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(vector) == 0 {
		return nil, domain.ErrEmbeddingFailed.WithCause(errors.New("empty query embedding"))
	}

	scored, err := rankChunks(vector, doc.Chunks)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to score document %s: %w", documentID, err)
	}
	if len(scored) > k {
		scored = scored[:k]
	}

	return &domain.RetrievalResult{
		DocumentID: documentID,
		Query:      query,
		Results:    scored,
	}, nil
}

func rankChunks(query []float32, chunks []domain.Chunk) ([]domain.ScoredChunk, error) {
	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		score, err := cosineSimilarity(query, c.Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, domain.ScoredChunk{Chunk: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Index < scored[j].Chunk.Index
	})
	return scored, nil
}

// AssembleContext joins the retrieved chunk texts using the service's cap.
func (s *RetrieverService) AssembleContext(result *domain.RetrievalResult) string {
	if result == nil {
		return ""
	}
	return AssembleContext(result.Results, s.maxContextChars)
}

// AssembleContext joins chunk texts in the given order with ContextSeparator.
// Chunks that would push the total past maxChars runes are dropped starting
// from the end of the list, which for ranked input is the lowest score. If
// even the first chunk is too long it is truncated.
func AssembleContext(results []domain.ScoredChunk, maxChars int) string {
	if len(results) == 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultContextMaxChars
	}

	sepLen := len([]rune(ContextSeparator))
	parts := make([]string, 0, len(results))
	total := 0
	for _, r := range results {
		n := len([]rune(r.Chunk.Text))
		if len(parts) > 0 {
			n += sepLen
		}
		if total+n > maxChars {
			break
		}
		parts = append(parts, r.Chunk.Text)
		total += n
	}

	if len(parts) == 0 {
		return string([]rune(results[0].Chunk.Text)[:maxChars])
	}
	return strings.Join(parts, ContextSeparator)
}

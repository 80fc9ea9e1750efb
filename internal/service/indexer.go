package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/logging"
	"github.com/cloo-solutions/docchat/internal/metrics"
	"github.com/cloo-solutions/docchat/internal/telemetry"
	"go.uber.org/zap"
)

// Embedder converts text into vectors.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([]domain.EmbeddedText, error)
}

// ChunkIndex stores one immutable chunk set per document.
type ChunkIndex interface {
	Replace(doc *domain.Document)
	Get(id string) (*domain.Document, error)
	Delete(id string)
	Count() int
}

// IndexerService chunks documents, embeds the chunks and stores them.
type IndexerService struct {
	embedder Embedder
	index    ChunkIndex
	chunkCfg ChunkConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewIndexerService creates a new IndexerService instance
func NewIndexerService(embedder Embedder, index ChunkIndex, chunkCfg ChunkConfig, logger *zap.Logger) *IndexerService {
	if chunkCfg.MaxChars <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IndexerService{
		embedder: embedder,
		index:    index,
		chunkCfg: chunkCfg,
		logger:   logging.OrNop(logger),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IndexDocument splits text into chunks, embeds them in one EmbedMany call
// and replaces whatever was indexed under documentID. Chunks that come back
// without a vector are dropped. When no chunk can be embedded the previous
// index is left untouched and an error is returned.
func (s *IndexerService) IndexDocument(ctx context.Context, documentID, text string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "IndexerService.IndexDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "index",
	})
	defer span.End()

	if err := domain.ValidateDocumentInput(documentID, text); err != nil {
		return nil, err
	}

	chunks := chunkText(documentID, text, s.chunkCfg)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	pairs, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	kept := attachEmbeddings(chunks, pairs)
	dropped := len(chunks) - len(kept)
	if dropped > 0 {
		s.logger.Warn("dropped chunks without embeddings",
			zap.String("document_id", documentID),
			zap.Int("chunks", len(chunks)),
			zap.Int("dropped", dropped),
		)
	}
	if len(kept) == 0 {
		err := domain.ErrEmbeddingFailed.WithCause(fmt.Errorf("none of %d chunks could be embedded", len(chunks)))
		span.SetError(err)
		return nil, err
	}

	doc := &domain.Document{
		ID:            documentID,
		Chunks:        kept,
		ChunkCount:    len(kept),
		DroppedChunks: dropped,
		TextLength:    utf8.RuneCountInString(text),
		IndexedAt:     s.now(),
	}
	s.index.Replace(doc)

	metrics.ChunksIndexed.Add(float64(len(kept)))
	metrics.DocumentsIndexed.Set(float64(s.index.Count()))
	s.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(kept)),
		zap.Int("dropped", dropped),
	)

	return doc, nil
}

// attachEmbeddings pairs each vector with the chunk it was produced for. A
// pair is accepted only when both its index and its text match the chunk, so
// a shifted or foreign result can never be attributed to the wrong chunk.
func attachEmbeddings(chunks []domain.Chunk, pairs []domain.EmbeddedText) []domain.Chunk {
	vectors := make(map[int][]float32, len(pairs))
	for _, p := range pairs {
		if p.Index < 0 || p.Index >= len(chunks) || len(p.Vector) == 0 {
			continue
		}
		if chunks[p.Index].Text != p.Text {
			continue
		}
		if _, dup := vectors[p.Index]; dup {
			continue
		}
		vectors[p.Index] = p.Vector
	}

	kept := make([]domain.Chunk, 0, len(vectors))
	for _, c := range chunks {
		if v, ok := vectors[c.Index]; ok {
			c.Embedding = v
			kept = append(kept, c)
		}
	}
	return kept
}

// GetDocument returns the indexed document or domain.ErrDocumentNotIndexed.
func (s *IndexerService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.index.Get(documentID)
}

// RemoveDocument drops the index for documentID. Unknown IDs are ignored.
func (s *IndexerService) RemoveDocument(ctx context.Context, documentID string) error {
	s.index.Delete(documentID)
	metrics.DocumentsIndexed.Set(float64(s.index.Count()))
	return nil
}

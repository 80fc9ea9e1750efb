package domain

import (
	"strings"
	"time"
)

// Document is an indexed body of plain text. A document is immutable once
// chunked; indexing the same ID again replaces it wholesale.
type Document struct {
	ID            string
	Chunks        []Chunk
	ChunkCount    int
	DroppedChunks int
	TextLength    int
	IndexedAt     time.Time
}

// Chunk is a bounded substring of a document and the unit of retrieval.
// Start and End are rune offsets into the document text.
type Chunk struct {
	DocumentID string
	Index      int
	Start      int
	End        int
	Text       string
	Embedding  []float32
}

// EmbeddedText pairs an input text with the vector produced for it. Index is
// the position of Text in the slice that was submitted for embedding.
type EmbeddedText struct {
	Index  int
	Text   string
	Vector []float32
}

// ScoredChunk is a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RetrievalResult holds at most K chunks ordered by descending score.
type RetrievalResult struct {
	DocumentID string
	Query      string
	Results    []ScoredChunk
}

// ValidateDocumentInput checks the inputs accepted by the indexer.
func ValidateDocumentInput(id, text string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(text) == "" {
		return ErrInvalidDocument
	}
	return nil
}

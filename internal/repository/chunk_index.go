package repository

import (
	"slices"
	"sync"

	"github.com/cloo-solutions/docchat/internal/domain"
)

// ChunkIndexRepository holds one immutable chunk snapshot per document.
// Replace swaps the whole snapshot, so a reader holding the result of Get
// keeps seeing the chunk set that was current when it called.
type ChunkIndexRepository struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

func NewChunkIndexRepository() *ChunkIndexRepository {
	return &ChunkIndexRepository{docs: make(map[string]*domain.Document)}
}

// Replace stores a copy of doc as the current index for doc.ID.
func (r *ChunkIndexRepository) Replace(doc *domain.Document) {
	snapshot := cloneDocument(doc)

	r.mu.Lock()
	r.docs[doc.ID] = snapshot
	r.mu.Unlock()
}

// Get returns the current snapshot for id. The returned document is shared
// and must not be modified.
func (r *ChunkIndexRepository) Get(id string) (*domain.Document, error) {
	r.mu.RLock()
	doc, ok := r.docs[id]
	r.mu.RUnlock()

	if !ok || len(doc.Chunks) == 0 {
		return nil, domain.ErrDocumentNotIndexed
	}
	return doc, nil
}

// Delete removes the index for id. Unknown IDs are ignored.
func (r *ChunkIndexRepository) Delete(id string) {
	r.mu.Lock()
	delete(r.docs, id)
	r.mu.Unlock()
}

// Count returns the number of indexed documents.
func (r *ChunkIndexRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func cloneDocument(doc *domain.Document) *domain.Document {
	out := *doc
	out.Chunks = make([]domain.Chunk, len(doc.Chunks))
	for i, c := range doc.Chunks {
		c.Embedding = slices.Clone(c.Embedding)
		out.Chunks[i] = c
	}
	return &out
}

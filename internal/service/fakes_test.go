package service

import (
	"context"
	"io"
	"math"
	"sync"
	"unicode"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/openai"
	"github.com/stretchr/testify/mock"
)

// MockEmbedder mocks the embedding gateway
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedMany(ctx context.Context, texts []string) ([]domain.EmbeddedText, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmbeddedText), args.Error(1)
}

// letterEmbedder maps text to normalized a-z letter frequencies.
type letterEmbedder struct{}

func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range text {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

func (letterEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return letterVector(text), nil
}

func (letterEmbedder) EmbedMany(ctx context.Context, texts []string) ([]domain.EmbeddedText, error) {
	out := make([]domain.EmbeddedText, len(texts))
	for i, t := range texts {
		out[i] = domain.EmbeddedText{Index: i, Text: t, Vector: letterVector(t)}
	}
	return out, nil
}

// memIndex is a minimal ChunkIndex.
type memIndex struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

func newMemIndex() *memIndex {
	return &memIndex{docs: make(map[string]*domain.Document)}
}

func (i *memIndex) Replace(doc *domain.Document) {
	i.mu.Lock()
	defer i.mu.Unlock()
	cp := *doc
	i.docs[doc.ID] = &cp
}

func (i *memIndex) Get(id string) (*domain.Document, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	doc, ok := i.docs[id]
	if !ok || len(doc.Chunks) == 0 {
		return nil, domain.ErrDocumentNotIndexed
	}
	return doc, nil
}

func (i *memIndex) Delete(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.docs, id)
}

func (i *memIndex) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// memSessions is a minimal SessionStore.
type memSessions struct {
	mu    sync.Mutex
	turns map[string][]domain.Turn
}

func newMemSessions() *memSessions {
	return &memSessions{turns: make(map[string][]domain.Turn)}
}

func (s *memSessions) History(id string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn{}, s.turns[id]...)
}

func (s *memSessions) Append(id string, turns ...domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[id] = append(s.turns[id], turns...)
}

func (s *memSessions) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, id)
}

func (s *memSessions) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.turns))
	for id := range s.turns {
		ids = append(ids, id)
	}
	return ids
}

// MockChatClient mocks the streaming chat client
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) StreamChat(ctx context.Context, req openai.ChatRequest) (openai.ChatStream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(openai.ChatStream), args.Error(1)
}

// scriptedStream replays fragments, then err (io.EOF when nil).
type scriptedStream struct {
	mu        sync.Mutex
	fragments []string
	err       error
	recvs     int
	closes    int
}

func newScriptedStream(err error, fragments ...string) *scriptedStream {
	return &scriptedStream{fragments: fragments, err: err}
}

func (s *scriptedStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recvs++
	if len(s.fragments) > 0 {
		f := s.fragments[0]
		s.fragments = s.fragments[1:]
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *scriptedStream) closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *scriptedStream) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recvs
}

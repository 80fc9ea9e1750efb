package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/docchat/internal/api/handlers"
	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockDocumentService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) DeleteDocument(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *MockDocumentService) GetJob(ctx context.Context, jobID string) (*domain.IndexJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexJob), args.Error(1)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, documentID, query string, k int) (*domain.RetrievalResult, error) {
	args := m.Called(ctx, documentID, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalResult), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, input service.ChatInput, sink service.DeltaSink) (*service.ChatResult, error) {
	args := m.Called(ctx, input, sink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatResult), args.Error(1)
}

func (m *MockChatService) History(ctx context.Context, sessionID, documentID string) ([]domain.Turn, error) {
	args := m.Called(ctx, sessionID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Turn), args.Error(1)
}

func (m *MockChatService) ClearSession(ctx context.Context, sessionID, documentID string) error {
	return m.Called(ctx, sessionID, documentID).Error(0)
}

type testRouter struct {
	handler   http.Handler
	documents *MockDocumentService
	retriever *MockRetriever
	chat      *MockChatService
}

func setupRouter() *testRouter {
	documents := new(MockDocumentService)
	retriever := new(MockRetriever)
	chat := new(MockChatService)

	cfg := RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(documents, retriever),
		JobHandler:      handlers.NewJobHandler(documents),
		ChatHandler:     handlers.NewChatHandler(chat, nil),
		SessionHandler:  handlers.NewSessionHandler(chat),
		MaxBodyBytes:    1024,
	}

	return &testRouter{
		handler:   NewRouter(cfg),
		documents: documents,
		retriever: retriever,
		chat:      chat,
	}
}

func TestRouter_HealthEndpoint(t *testing.T) {
	tr := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	tr.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	tr := setupRouter()

	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouter_DocumentRoutes(t *testing.T) {
	tr := setupRouter()

	doc := &domain.Document{ID: "doc-1", ChunkCount: 2, IndexedAt: time.Now()}
	tr.documents.On("Ingest", mock.Anything, mock.Anything).Return(&service.IngestResult{DocumentID: "doc-1", Document: doc}, nil)
	tr.documents.On("GetDocument", mock.Anything, "doc-1").Return(doc, nil)
	tr.documents.On("DeleteDocument", mock.Anything, "doc-1").Return(nil)
	tr.retriever.On("Retrieve", mock.Anything, "doc-1", "q", 0).Return(&domain.RetrievalResult{DocumentID: "doc-1", Query: "q"}, nil)

	routes := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/documents", `{"id":"doc-1","text":"abc"}`, http.StatusCreated},
		{http.MethodGet, "/documents/doc-1", "", http.StatusOK},
		{http.MethodPost, "/documents/doc-1/search", `{"query":"q"}`, http.StatusOK},
		{http.MethodDelete, "/documents/doc-1", "", http.StatusNoContent},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, strings.NewReader(route.body))
			w := httptest.NewRecorder()

			tr.handler.ServeHTTP(w, req)

			assert.Equal(t, route.status, w.Code)
		})
	}

	tr.documents.AssertExpectations(t)
	tr.retriever.AssertExpectations(t)
}

func TestRouter_JobAndSessionRoutes(t *testing.T) {
	tr := setupRouter()

	tr.documents.On("GetJob", mock.Anything, "job-1").Return(nil, domain.ErrJobNotFound)
	tr.chat.On("History", mock.Anything, "s1", "doc-1").Return([]domain.Turn{}, nil)
	tr.chat.On("ClearSession", mock.Anything, "s1", "").Return(nil)

	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	tr.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/s1/history?document_id=doc-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	tr.handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	tr.chat.AssertExpectations(t)
}

func TestRouter_ChatStreamsThroughMiddleware(t *testing.T) {
	tr := setupRouter()

	tr.chat.On("Chat", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sink := args.Get(2).(service.DeltaSink)
		require.NoError(t, sink("hi"))
	}).Return(&service.ChatResult{Response: "hi"}, nil)

	body := `{"session_id":"s1","message":"hello"}`
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: delta\ndata: {\"text\":\"hi\"}\n\n")
	assert.Contains(t, w.Body.String(), "event: done")
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	tr := setupRouter()

	body := bytes.Repeat([]byte("a"), 2048)
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	tr.documents.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

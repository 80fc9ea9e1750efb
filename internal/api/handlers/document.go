package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloo-solutions/docchat/internal/api"
	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type Retriever interface {
	Retrieve(ctx context.Context, documentID, query string, k int) (*domain.RetrievalResult, error)
}

type DocumentHandler struct {
	svc       DocumentService
	retriever Retriever
}

func NewDocumentHandler(svc DocumentService, retriever Retriever) *DocumentHandler {
	return &DocumentHandler{svc: svc, retriever: retriever}
}

type IngestDocumentRequest struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Async bool   `json:"async"`
}

type SearchDocumentRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type DocumentResponse struct {
	ID            string `json:"id"`
	ChunkCount    int    `json:"chunk_count"`
	DroppedChunks int    `json:"dropped_chunks"`
	TextLength    int    `json:"text_length"`
	IndexedAt     string `json:"indexed_at"`
}

type IngestAcceptedResponse struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id"`
}

type SearchResultResponse struct {
	Index int     `json:"index"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type SearchResponse struct {
	DocumentID string                 `json:"document_id"`
	Query      string                 `json:"query"`
	Results    []SearchResultResponse `json:"results"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:            d.ID,
		ChunkCount:    d.ChunkCount,
		DroppedChunks: d.DroppedChunks,
		TextLength:    d.TextLength,
		IndexedAt:     d.IndexedAt.UTC().Format(time.RFC3339),
	}
}

func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.svc.Ingest(r.Context(), service.IngestInput{
		ID:    req.ID,
		Text:  req.Text,
		Async: req.Async,
	})
	if err != nil {
		api.HandleRequestError(r.Context(), w, err)
		return
	}

	if result.Job != nil {
		api.Success(w, http.StatusAccepted, &IngestAcceptedResponse{
			DocumentID: result.DocumentID,
			JobID:      result.Job.ID,
		})
		return
	}
	api.Success(w, http.StatusCreated, documentToResponse(result.Document))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		api.HandleRequestError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		api.HandleRequestError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req SearchDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.K < 0 {
		api.Error(w, http.StatusBadRequest, "k must not be negative")
		return
	}

	result, err := h.retriever.Retrieve(r.Context(), id, req.Query, req.K)
	if err != nil {
		api.HandleRequestError(r.Context(), w, err)
		return
	}

	resp := &SearchResponse{
		DocumentID: result.DocumentID,
		Query:      result.Query,
		Results:    make([]SearchResultResponse, 0, len(result.Results)),
	}
	for _, sc := range result.Results {
		resp.Results = append(resp.Results, SearchResultResponse{
			Index: sc.Chunk.Index,
			Start: sc.Chunk.Start,
			End:   sc.Chunk.End,
			Score: sc.Score,
			Text:  sc.Chunk.Text,
		})
	}
	api.Success(w, http.StatusOK, resp)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/docchat/internal/api"
	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/go-chi/chi/v5"
)

type JobService interface {
	GetJob(ctx context.Context, jobID string) (*domain.IndexJob, error)
}

type JobHandler struct {
	svc JobService
}

func NewJobHandler(svc JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

type JobResponse struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Status      string `json:"status"`
	Retries     int32  `json:"retries"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

func jobToResponse(j *domain.IndexJob) *JobResponse {
	resp := &JobResponse{
		ID:         j.ID,
		DocumentID: j.DocumentID,
		Status:     string(j.Status),
		Retries:    j.Retries,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.ProcessedAt != nil {
		resp.ProcessedAt = j.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		api.HandleRequestError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}

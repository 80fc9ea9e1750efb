package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/docchat/internal/api"
	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/go-chi/chi/v5"
)

type SessionService interface {
	History(ctx context.Context, sessionID, documentID string) ([]domain.Turn, error)
	ClearSession(ctx context.Context, sessionID, documentID string) error
}

type SessionHandler struct {
	svc SessionService
}

func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type TurnResponse struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type HistoryResponse struct {
	SessionID  string         `json:"session_id"`
	DocumentID string         `json:"document_id,omitempty"`
	Turns      []TurnResponse `json:"turns"`
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	documentID := r.URL.Query().Get("document_id")

	turns, err := h.svc.History(r.Context(), id, documentID)
	if err != nil {
		api.HandleRequestError(r.Context(), w, err)
		return
	}

	resp := &HistoryResponse{
		SessionID:  id,
		DocumentID: documentID,
		Turns:      make([]TurnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, TurnResponse{
			Role:      string(t.Role),
			Text:      t.Text,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.ClearSession(r.Context(), id, r.URL.Query().Get("document_id")); err != nil {
		api.HandleRequestError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/docchat/internal/api"
	"github.com/cloo-solutions/docchat/internal/service"
	"github.com/cloo-solutions/docchat/internal/telemetry"
	"go.uber.org/zap"
)

type ChatService interface {
	Chat(ctx context.Context, input service.ChatInput, sink service.DeltaSink) (*service.ChatResult, error)
}

type ChatHandler struct {
	svc    ChatService
	logger *zap.Logger
}

func NewChatHandler(svc ChatService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{svc: svc, logger: logger}
}

type ChatRequest struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
	UserType   string `json:"user_type"`
	K          int    `json:"k"`
}

type deltaEvent struct {
	Text string `json:"text"`
}

type doneEvent struct {
	Response string `json:"response"`
}

type errorEvent struct {
	Error   string `json:"error"`
	Partial string `json:"partial"`
}

// Chat streams the model response as server-sent events: one "delta" per
// fragment, then "done" with the full text or "error" with whatever text
// was produced. Failures before the first fragment are plain JSON errors.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.K < 0 {
		api.Error(w, http.StatusBadRequest, "k must not be negative")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	input := service.ChatInput{
		SessionID:  req.SessionID,
		DocumentID: req.DocumentID,
		Message:    req.Message,
		UserType:   req.UserType,
		K:          req.K,
	}
	result, err := h.svc.Chat(r.Context(), input, func(delta string) error {
		return sse.Send("delta", deltaEvent{Text: delta})
	})
	if err != nil {
		if !sse.Started() {
			api.HandleRequestError(r.Context(), w, err)
			return
		}

		partial := ""
		if result != nil {
			partial = result.Response
		}
		if r.Context().Err() == nil {
			telemetry.CaptureError(r.Context(), err)
		}
		if sendErr := sse.Send("error", errorEvent{Error: err.Error(), Partial: partial}); sendErr != nil {
			h.logger.Debug("client gone before error event", zap.Error(sendErr))
		}
		return
	}

	if err := sse.Send("done", doneEvent{Response: result.Response}); err != nil {
		h.logger.Debug("client gone before done event", zap.Error(err))
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSessionHandler_History(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewSessionHandler(mockSvc)

	now := time.Now().UTC()
	mockSvc.On("History", mock.Anything, "s1", "doc-1").Return([]domain.Turn{
		{Role: domain.RoleUser, Text: "hi", CreatedAt: now},
		{Role: domain.RoleModel, Text: "hello", CreatedAt: now},
	}, nil)

	w := httptest.NewRecorder()
	handler.History(w, requestWithID(http.MethodGet, "/sessions/s1/history?document_id=doc-1", "s1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data HistoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Turns, 2)
	assert.Equal(t, "user", resp.Data.Turns[0].Role)
	assert.Equal(t, "model", resp.Data.Turns[1].Role)
	assert.Equal(t, "doc-1", resp.Data.DocumentID)
}

func TestSessionHandler_History_EmptyIsArray(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewSessionHandler(mockSvc)

	mockSvc.On("History", mock.Anything, "s1", "").Return([]domain.Turn{}, nil)

	w := httptest.NewRecorder()
	handler.History(w, requestWithID(http.MethodGet, "/sessions/s1/history", "s1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"turns":[]`)
}

func TestSessionHandler_History_InvalidSession(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewSessionHandler(mockSvc)

	mockSvc.On("History", mock.Anything, " ", "").Return(nil, domain.ErrInvalidChatInput)

	w := httptest.NewRecorder()
	handler.History(w, requestWithID(http.MethodGet, "/sessions/%20/history", " ", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Clear(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewSessionHandler(mockSvc)

	mockSvc.On("ClearSession", mock.Anything, "s1", "doc-1").Return(nil)

	w := httptest.NewRecorder()
	handler.Clear(w, requestWithID(http.MethodDelete, "/sessions/s1?document_id=doc-1", "s1", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockSvc.AssertExpectations(t)
}

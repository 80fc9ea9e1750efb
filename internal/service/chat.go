package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/logging"
	"github.com/cloo-solutions/docchat/internal/metrics"
	"github.com/cloo-solutions/docchat/internal/telemetry"
	"go.uber.org/zap"
)

// SessionStore holds conversation turns keyed by session.
type SessionStore interface {
	History(id string) []domain.Turn
	Append(id string, turns ...domain.Turn)
	Clear(id string)
	Sessions() []string
}

// ContextRetriever finds and assembles document context for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, documentID, query string, k int) (*domain.RetrievalResult, error)
	AssembleContext(result *domain.RetrievalResult) string
}

// Completer opens a streamed model response.
type Completer interface {
	StreamCompletion(ctx context.Context, systemInstruction string, history []domain.Turn, userPrompt string) (*DeltaStream, error)
}

// DeltaSink receives each response fragment as it arrives. Returning an
// error stops the response.
type DeltaSink func(delta string) error

// ChatInput is one user message.
type ChatInput struct {
	SessionID  string
	DocumentID string // empty for general chat
	Message    string
	UserType   string
	K          int
}

// ChatResult describes a finished or failed turn. On failure Response holds
// whatever text was produced before the error.
type ChatResult struct {
	SessionKey string
	Response   string
	Sources    []domain.ScoredChunk
}

// ChatService runs the retrieve, compose and stream cycle for one message
// and records the exchange in the session store.
type ChatService struct {
	retriever ContextRetriever
	composer  *PromptComposer
	streamer  Completer
	sessions  SessionStore
	logger    *zap.Logger
}

// NewChatService creates a new ChatService instance
func NewChatService(retriever ContextRetriever, composer *PromptComposer, streamer Completer, sessions SessionStore, logger *zap.Logger) *ChatService {
	if composer == nil {
		composer = NewPromptComposer(0)
	}
	return &ChatService{
		retriever: retriever,
		composer:  composer,
		streamer:  streamer,
		sessions:  sessions,
		logger:    logging.OrNop(logger),
	}
}

// SessionKey scopes a caller session to a document, so chats about
// different documents and general chat keep separate histories. The
// document ID is length-prefixed because either ID may contain ':'.
func SessionKey(sessionID, documentID string) string {
	if documentID == "" {
		return "general:" + sessionID
	}
	return fmt.Sprintf("doc:%d:%s:%s", len(documentID), documentID, sessionID)
}

// Chat answers input.Message, forwarding every fragment to sink. The user
// turn and the complete model turn are stored together only when the whole
// response was produced and delivered; a failed turn leaves the session
// unchanged.
func (s *ChatService) Chat(ctx context.Context, input ChatInput, sink DeltaSink) (*ChatResult, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	documentID := strings.TrimSpace(input.DocumentID)
	if sessionID == "" || strings.TrimSpace(input.Message) == "" {
		return nil, domain.ErrInvalidChatInput
	}
	userType := domain.ParseUserType(input.UserType)

	ctx, span := telemetry.StartSpan(ctx, "ChatService.Chat", telemetry.SpanAttributes{
		SessionID:  sessionID,
		DocumentID: documentID,
		UserType:   string(userType),
		Operation:  "chat",
	})
	defer span.End()

	result := &ChatResult{SessionKey: SessionKey(sessionID, documentID)}

	var docContext string
	if documentID != "" {
		retrieved, err := s.retriever.Retrieve(ctx, documentID, input.Message, input.K)
		if err != nil {
			span.SetError(err)
			return result, fmt.Errorf("failed to retrieve context: %w", err)
		}
		result.Sources = retrieved.Results
		docContext = s.retriever.AssembleContext(retrieved)
	}

	history := s.sessions.History(result.SessionKey)
	prompt := s.composer.Compose(docContext, history, input.Message, userType)

	stream, err := s.streamer.StreamCompletion(ctx, prompt.SystemInstruction, s.composer.Window(history), prompt.UserPrompt)
	if err != nil {
		span.SetError(err)
		return result, err
	}

	var response strings.Builder
	for delta, err := range stream.All() {
		if err != nil {
			result.Response = response.String()
			s.logger.Warn("completion failed",
				zap.String("session", result.SessionKey),
				zap.Int("partial_chars", response.Len()),
				zap.Error(err),
			)
			span.SetError(err)
			return result, err
		}
		response.WriteString(delta)
		if sink == nil {
			continue
		}
		if err := sink(delta); err != nil {
			result.Response = response.String()
			return result, fmt.Errorf("failed to forward response: %w", err)
		}
	}

	result.Response = response.String()
	s.sessions.Append(result.SessionKey,
		domain.NewUserTurn(input.Message),
		domain.NewModelTurn(result.Response),
	)
	metrics.ActiveSessions.Set(float64(len(s.sessions.Sessions())))

	return result, nil
}

// History returns the stored turns for a caller session, scoped like Chat.
func (s *ChatService) History(ctx context.Context, sessionID, documentID string) ([]domain.Turn, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrInvalidChatInput
	}
	return s.sessions.History(SessionKey(sessionID, strings.TrimSpace(documentID))), nil
}

// ClearSession drops the stored turns for a caller session. Unknown
// sessions are a no-op.
func (s *ChatService) ClearSession(ctx context.Context, sessionID, documentID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.ErrInvalidChatInput
	}
	s.sessions.Clear(SessionKey(sessionID, strings.TrimSpace(documentID)))
	metrics.ActiveSessions.Set(float64(len(s.sessions.Sessions())))
	return nil
}

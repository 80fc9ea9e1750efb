package service

import (
	"context"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/logging"
	"github.com/cloo-solutions/docchat/internal/metrics"
	"github.com/cloo-solutions/docchat/internal/openai"
	"go.uber.org/zap"
)

// ChatClient opens streaming chat completions.
type ChatClient interface {
	StreamChat(ctx context.Context, req openai.ChatRequest) (openai.ChatStream, error)
}

// CompletionStreamer opens one streamed model response per chat turn. It
// never retries.
type CompletionStreamer struct {
	client ChatClient
	logger *zap.Logger
}

// NewCompletionStreamer creates a streamer. client may be nil when no model
// credentials are configured.
func NewCompletionStreamer(client ChatClient, logger *zap.Logger) *CompletionStreamer {
	return &CompletionStreamer{client: client, logger: logging.OrNop(logger)}
}

// StreamCompletion sends history and userPrompt under systemInstruction and
// returns the response as a DeltaStream. The caller must either range over
// DeltaStream.All or call Close.
func (s *CompletionStreamer) StreamCompletion(ctx context.Context, systemInstruction string, history []domain.Turn, userPrompt string) (*DeltaStream, error) {
	if s.client == nil {
		return nil, domain.ErrServiceUnavailable
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := s.client.StreamChat(streamCtx, openai.ChatRequest{
		SystemInstruction: systemInstruction,
		History:           history,
		Message:           userPrompt,
	})
	if err != nil {
		cancel()
		metrics.CompletionResults.WithLabelValues("failed").Inc()
		s.logger.Warn("failed to open completion stream", zap.Error(err))
		return nil, domain.ErrCompletionFailed.WithCause(err)
	}

	s.logger.Debug("completion stream opened",
		zap.Int("history_turns", len(history)),
		zap.Int("prompt_chars", len(userPrompt)),
	)
	return newDeltaStream(streamCtx, cancel, stream), nil
}

package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloo-solutions/docchat/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// ChatRequest is a single streamed chat turn.
type ChatRequest struct {
	SystemInstruction string
	History           []domain.Turn
	Message           string
}

// ChatStream yields text fragments until io.EOF.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// ChatAPI defines the interface for streaming chat completions
type ChatAPI interface {
	CreateChatStream(ctx context.Context, req ChatRequest) (ChatStream, error)
}

// CreateChatStream opens a streaming chat completion carrying the system
// instruction, the prior turns and the new message.
func (a *OpenAIAdapter) CreateChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       a.chatModel,
		Messages:    buildMessages(req),
		Temperature: a.temperature,
		TopP:        1,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &completionStream{stream: stream}, nil
}

func buildMessages(req ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})
	return messages
}

type completionStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next non-empty content fragment.
func (s *completionStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if text := resp.Choices[0].Delta.Content; text != "" {
			return text, nil
		}
	}
}

func (s *completionStream) Close() error {
	return s.stream.Close()
}

// StreamChat opens a chat stream after waiting on the shared rate limiter.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (ChatStream, error) {
	if c.chat == nil {
		return nil, errors.New("chat api not configured")
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	stream, err := c.chat.CreateChatStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat stream: %w", err)
	}
	return stream, nil
}

// IsEndOfStream reports whether err marks a normal end of the stream.
func IsEndOfStream(err error) bool {
	return errors.Is(err, io.EOF)
}

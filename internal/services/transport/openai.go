package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/deepgram/lumina/internal/domain/chat"
	"github.com/deepgram/lumina/internal/domain/chat/models"
	"github.com/deepgram/lumina/internal/logger"
)

// OpenAITransport streams replies from an OpenAI compatible chat completion endpoint
type OpenAITransport struct {
	client *openai.Client
}

var _ chat.Transport = &OpenAITransport{}

func NewOpenAITransport(client *openai.Client) (*OpenAITransport, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client is required")
	}
	return &OpenAITransport{client: client}, nil
}

func (t *OpenAITransport) SendStream(ctx context.Context, session chat.Session, userText string) (chat.FragmentSequence, error) {
	history, err := session.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:    session.Model(),
		Messages: buildMessages(session.SystemInstruction(), history, userText),
		Stream:   true,
	}

	log.Debug().
		Str("component", logger.TRANSPORT).
		Str("session_id", session.ID()).
		Int("history", len(history)).
		Msg("Opening completion stream")

	stream, err := t.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}

	return &openAISequence{stream: stream}, nil
}

func buildMessages(instruction string, history []models.Exchange, userText string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2+2*len(history))
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: instruction,
	})
	for _, ex := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: ex.User},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: ex.Model},
		)
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})
}

type openAISequence struct {
	stream *openai.ChatCompletionStream
}

// Next skips chunks that carry no text
func (s *openAISequence) Next() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("completion stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *openAISequence) Close() error {
	s.stream.Close()
	return nil
}

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// OllamaBackend talks to a local Ollama server. It ignores the use-case and
// always generates with a fixed low temperature.
type OllamaBackend struct {
	model llms.Model
}

// NewOllamaBackend creates a backend for the Ollama server at serverURL.
func NewOllamaBackend(serverURL, model string) (*OllamaBackend, error) {
	m, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return newOllamaBackend(m), nil
}

func newOllamaBackend(m llms.Model) *OllamaBackend {
	return &OllamaBackend{model: m}
}

// Name implements Backend.
func (b *OllamaBackend) Name() string {
	return BackendOllama
}

// Send implements Backend.
func (b *OllamaBackend) Send(ctx context.Context, messages []domain.ChatMessage, _ Params) (*Completion, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	resp, err := b.model.GenerateContent(ctx, toMessageContent(messages), llms.WithTemperature(ollamaTemperature))
	if err != nil {
		return nil, transportError(BackendOllama, 0, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, responseFormatError(BackendOllama, errors.New("response has no choices"))
	}
	return &Completion{Content: resp.Choices[0].Content}, nil
}

// Stream implements Backend.
func (b *OllamaBackend) Stream(ctx context.Context, messages []domain.ChatMessage, _ Params, callback StreamCallback) error {
	if err := validateMessages(messages); err != nil {
		return err
	}

	var callbackErr error
	_, err := b.model.GenerateContent(ctx, toMessageContent(messages),
		llms.WithTemperature(ollamaTemperature),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if cbErr := callback(Delta{Content: string(chunk)}); cbErr != nil {
				callbackErr = cbErr
				return cbErr
			}
			return nil
		}),
	)
	if callbackErr != nil {
		return callbackErr
	}
	if err != nil {
		return transportError(BackendOllama, 0, err)
	}
	return nil
}

func toMessageContent(messages []domain.ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(messageType(m.Role), m.Content))
	}
	return out
}

func messageType(role domain.Role) schema.ChatMessageType {
	switch role {
	case domain.RoleSystem:
		return schema.ChatMessageTypeSystem
	case domain.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

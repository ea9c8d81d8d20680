package llm

import (
	"context"
	"fmt"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// MockBackend answers without any network access. It is selected when the
// server runs in MOCK mode.
type MockBackend struct{}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name implements Backend.
func (m *MockBackend) Name() string {
	return BackendMock
}

// Send returns a canned response echoing the last user message.
func (m *MockBackend) Send(_ context.Context, messages []domain.ChatMessage, _ Params) (*Completion, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}
	return &Completion{Content: m.generateMockResponse(messages)}, nil
}

// Stream simulates a streaming response by splitting the canned response.
func (m *MockBackend) Stream(ctx context.Context, messages []domain.ChatMessage, _ Params, callback StreamCallback) error {
	if err := validateMessages(messages); err != nil {
		return err
	}

	for _, chunk := range splitIntoChunks(m.generateMockResponse(messages), 10) {
		select {
		case <-ctx.Done():
			return transportError(BackendMock, 0, ctx.Err())
		default:
		}
		if err := callback(Delta{Content: chunk}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockBackend) generateMockResponse(messages []domain.ChatMessage) string {
	var lastUserMessage string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			lastUserMessage = messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the fitness assistant."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// splitIntoChunks splits s into rune-safe chunks of at most chunkSize runes.
func splitIntoChunks(s string, chunkSize int) []string {
	runes := []rune(s)
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

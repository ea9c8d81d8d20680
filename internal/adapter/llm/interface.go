// Package llm provides interchangeable AI chat backends behind one contract.
package llm

import (
	"context"
	"fmt"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// Backend names.
const (
	BackendDeepSeek = "deepseek"
	BackendOllama   = "ollama"
	BackendMock     = "mock"
)

// Params carries per-call generation parameters. Backends ignore what they
// do not support.
type Params struct {
	UseCase domain.UseCase
}

// Completion is the canonical whole-response shape.
type Completion struct {
	Content string
}

// Delta is one incremental piece of a streamed response.
type Delta struct {
	Content string
}

// StreamCallback is called for each delta, in order. The next delta is not
// read until the callback returns. A non-nil error aborts the stream and is
// returned unchanged by Stream.
type StreamCallback func(delta Delta) error

// Backend is a chat completion service. Implementations normalize their
// wire format to Completion and Delta and return *Error for failures they
// originate.
type Backend interface {
	// Name identifies the backend family.
	Name() string

	// Send performs a blocking chat completion.
	Send(ctx context.Context, messages []domain.ChatMessage, params Params) (*Completion, error)

	// Stream performs a streaming chat completion. The sequence is finite and
	// cannot be restarted.
	Stream(ctx context.Context, messages []domain.ChatMessage, params Params, callback StreamCallback) error
}

// Ensure implementations satisfy Backend.
var (
	_ Backend = (*DeepSeekBackend)(nil)
	_ Backend = (*OllamaBackend)(nil)
	_ Backend = (*MockBackend)(nil)
)

func validateMessages(messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("llm: messages must not be empty")
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return fmt.Errorf("llm: message %d has invalid role %q", i, m.Role)
		}
	}
	return nil
}

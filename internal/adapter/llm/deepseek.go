package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// DeepSeekBackend talks to an OpenAI-compatible chat completions API.
type DeepSeekBackend struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewDeepSeekBackend creates a DeepSeek backend. An empty apiKey is allowed;
// calls then fail with a configuration error.
//
// timeout bounds a whole Send and the wait for response headers of a Stream.
// Reading a stream body is bounded only by the caller's context.
func NewDeepSeekBackend(baseURL, apiKey, model string, timeout time.Duration) *DeepSeekBackend {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &DeepSeekBackend{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{Transport: transport},
	}
}

// chatCompletionRequest is the request body for /v1/chat/completions.
type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

// chatCompletionResponse is the non-streaming response body.
type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

// streamChunk is a single SSE data payload from the stream.
type streamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	Delta        *chatMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// errorResponse is the API error envelope.
type errorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Name implements Backend.
func (b *DeepSeekBackend) Name() string {
	return BackendDeepSeek
}

// Send implements Backend.
func (b *DeepSeekBackend) Send(ctx context.Context, messages []domain.ChatMessage, params Params) (*Completion, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	resp, err := b.do(ctx, messages, params, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(BackendDeepSeek, 0, fmt.Errorf("failed to read response: %w", err))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, responseFormatError(BackendDeepSeek, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return nil, responseFormatError(BackendDeepSeek, errors.New("response has no message choice"))
	}

	return &Completion{Content: result.Choices[0].Message.Content}, nil
}

// Stream implements Backend.
func (b *DeepSeekBackend) Stream(ctx context.Context, messages []domain.ChatMessage, params Params, callback StreamCallback) error {
	resp, err := b.do(ctx, messages, params, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		if err := ctx.Err(); err != nil {
			return transportError(BackendDeepSeek, 0, err)
		}

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return transportError(BackendDeepSeek, 0, fmt.Errorf("failed to read stream: %w", err))
		}
		eof := errors.Is(err, io.EOF)

		data, ok := sseData(line)
		if ok {
			if data == "[DONE]" {
				return nil
			}

			var chunk streamChunk
			// Malformed chunks are skipped.
			if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr == nil {
				if text := chunk.deltaText(); text != "" {
					if cbErr := callback(Delta{Content: text}); cbErr != nil {
						return cbErr
					}
				}
			}
		}

		if eof {
			return nil
		}
	}
}

func (c streamChunk) deltaText() string {
	if len(c.Choices) == 0 || c.Choices[0].Delta == nil {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// sseData extracts the payload of an SSE data line.
func sseData(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}

// do sends the request and returns the response when the status is 200.
func (b *DeepSeekBackend) do(ctx context.Context, messages []domain.ChatMessage, params Params, stream bool) (*http.Response, error) {
	if b.apiKey == "" {
		return nil, configurationError(BackendDeepSeek, errors.New("DEEPSEEK_API_KEY is not set"))
	}
	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	temperature := DeepSeekTemperature(params.UseCase)
	body, err := json.Marshal(&chatCompletionRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: &temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(BackendDeepSeek, 0, fmt.Errorf("failed to send request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, transportError(BackendDeepSeek, resp.StatusCode, fmt.Errorf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type))
		}
		return nil, transportError(BackendDeepSeek, resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
	}

	return resp, nil
}

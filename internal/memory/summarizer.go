// Package memory compresses conversation history into a bounded summary.
package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/domain"
)

// Threshold is the number of messages between summarizations.
const Threshold = 10

const (
	summarySystemPrompt = "You are an assistant that summarizes conversations. Identify the key " +
		"information in the conversation and write a concise memory summary for future reference."
	previousSummaryPrompt = "\n\nHere is the previous memory summary. Take it into account when " +
		"writing the new one:\n"
	focusPrompt = "\n\nFocus on the user's:\n" +
		"1. Fitness and exercise goals\n" +
		"2. Fitness test data and physical condition\n" +
		"3. Dietary preferences and restrictions\n" +
		"4. Exercise habits and frequency\n" +
		"5. Any health problems or injury history"
	summaryInstruction = "Based on the conversation above, write a concise memory summary that " +
		"captures the user's key information, preferences and important context. Write it in " +
		"the third person and keep to the point."

	mergeSystemPrompt = "You are an assistant that integrates information. Merge two memory " +
		"summaries into one coherent summary without redundancy. Keep all important " +
		"information, remove duplicates and make sure the result reads logically."
	mergeInstruction = "Merge the following two memory summaries into one coherent summary " +
		"without repeating content:\n\nOld summary:\n%s\n\nNew summary:\n%s"
)

// BackendProvider returns the backend used for summarization.
type BackendProvider interface {
	Summarization() (llm.Backend, error)
}

// Summarizer produces memory summaries. It never persists anything itself.
type Summarizer struct {
	backends BackendProvider
	logger   *zap.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(backends BackendProvider, logger *zap.Logger) *Summarizer {
	return &Summarizer{backends: backends, logger: logger}
}

// ShouldSummarize reports whether a conversation of messageCount messages is
// due for summarization. It fires on every exact multiple of Threshold.
func ShouldSummarize(messageCount int) bool {
	return messageCount > 0 && messageCount%Threshold == 0
}

// Summarize summarizes the most recent Threshold messages and merges the
// result with previous when it is non-empty. Backend failures are logged and
// degrade to previous (first pass) or to plain concatenation (merge pass).
func (s *Summarizer) Summarize(ctx context.Context, messages []domain.Message, previous string) string {
	backend, err := s.backends.Summarization()
	if err != nil {
		s.logger.Warn("summarization backend unavailable", zap.Error(err))
		return previous
	}

	resp, err := backend.Send(ctx, summaryPrompt(messages, previous), llm.Params{UseCase: domain.UseCaseGeneral})
	if err != nil {
		s.logger.Warn("failed to generate memory summary", zap.String("backend", backend.Name()), zap.Error(err))
		return previous
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return previous
	}
	if previous == "" {
		return summary
	}
	return s.merge(ctx, backend, previous, summary)
}

func (s *Summarizer) merge(ctx context.Context, backend llm.Backend, previous, current string) string {
	fallback := previous + "\n\n" + current

	resp, err := backend.Send(ctx, mergePrompt(previous, current), llm.Params{UseCase: domain.UseCaseGeneral})
	if err != nil {
		s.logger.Warn("failed to merge memory summaries", zap.String("backend", backend.Name()), zap.Error(err))
		return fallback
	}
	merged := strings.TrimSpace(resp.Content)
	if merged == "" {
		return fallback
	}
	return merged
}

func summaryPrompt(messages []domain.Message, previous string) []domain.ChatMessage {
	system := summarySystemPrompt
	if previous != "" {
		system += previousSummaryPrompt + previous
	}
	system += focusPrompt

	if len(messages) > Threshold {
		messages = messages[len(messages)-Threshold:]
	}

	out := make([]domain.ChatMessage, 0, len(messages)+2)
	out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	for _, m := range messages {
		out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return append(out, domain.ChatMessage{Role: domain.RoleUser, Content: summaryInstruction})
}

func mergePrompt(previous, current string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: mergeSystemPrompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf(mergeInstruction, previous, current)},
	}
}

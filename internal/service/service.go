// Package service implements conversation management and the chat turn
// orchestration for the blocking, streaming and real-time channels.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/config"
	"github.com/reddishJade/sports-exem/internal/domain"
	"github.com/reddishJade/sports-exem/internal/policy"
	"github.com/reddishJade/sports-exem/internal/repository"
)

// BackendResolver picks the backend for a turn.
type BackendResolver interface {
	Resolve(requested string) (llm.Backend, error)
}

// MemorySummarizer compresses conversation history.
type MemorySummarizer interface {
	Summarize(ctx context.Context, messages []domain.Message, previous string) string
}

// AccessPolicy decides whether a caller may act on a conversation.
type AccessPolicy interface {
	Evaluate(ctx context.Context, input policy.Input) (policy.Decision, error)
}

type Service struct {
	store      repository.Store
	backends   BackendResolver
	summarizer MemorySummarizer
	policy     AccessPolicy
	config     *config.Config
	logger     *zap.Logger
}

func New(store repository.Store, backends BackendResolver, summarizer MemorySummarizer, policyEngine AccessPolicy, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		backends:   backends,
		summarizer: summarizer,
		policy:     policyEngine,
		config:     cfg,
		logger:     logger,
	}
}

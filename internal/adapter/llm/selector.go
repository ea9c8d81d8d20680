package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/config"
	"github.com/reddishJade/sports-exem/internal/domain"
)

// Selector picks a backend for a turn. Its only input besides the request is
// the configuration captured at startup.
type Selector struct {
	cfg      *config.Config
	backends map[string]Backend
	logger   *zap.Logger
}

// NewSelector creates a selector over the given backends, keyed by Name.
func NewSelector(cfg *config.Config, logger *zap.Logger, backends ...Backend) *Selector {
	m := make(map[string]Backend, len(backends))
	for _, b := range backends {
		m[b.Name()] = b
	}
	return &Selector{cfg: cfg, backends: m, logger: logger}
}

// NewBackends builds the backends described by cfg.
func NewBackends(cfg *config.Config) ([]Backend, error) {
	ollamaBackend, err := NewOllamaBackend(cfg.Ollama.BaseURL, cfg.Ollama.Model)
	if err != nil {
		return nil, err
	}
	return []Backend{
		NewDeepSeekBackend(cfg.DeepSeek.BaseURL, cfg.DeepSeek.APIKey, cfg.DeepSeek.Model, cfg.LLMTimeout),
		ollamaBackend,
		NewMockBackend(),
	}, nil
}

// Resolve returns the backend for a requested identifier.
//
// "auto" and unrecognized identifiers pick DeepSeek when its credential is
// present and Ollama otherwise. An explicit DeepSeek request without a
// credential is downgraded to Ollama with a warning.
func (s *Selector) Resolve(requested string) (Backend, error) {
	if s.cfg.Mode == config.ModeMock {
		return s.lookup(BackendMock)
	}

	name := requested
	switch requested {
	case BackendDeepSeek:
		if !s.cfg.HasDeepSeekCredential() {
			s.logger.Warn("deepseek requested but api key is not set, falling back to ollama")
			name = BackendOllama
		}
	case BackendOllama:
	default:
		if requested != domain.BackendAuto && requested != "" {
			s.logger.Debug("unrecognized backend requested, resolving automatically", zap.String("requested", requested))
		}
		name = BackendOllama
		if s.cfg.HasDeepSeekCredential() {
			name = BackendDeepSeek
		}
	}
	return s.lookup(name)
}

// Summarization returns the backend used for memory summarization. It is
// always the primary family, independent of what a turn selected.
func (s *Selector) Summarization() (Backend, error) {
	if s.cfg.Mode == config.ModeMock {
		return s.lookup(BackendMock)
	}
	return s.lookup(BackendDeepSeek)
}

func (s *Selector) lookup(name string) (Backend, error) {
	b, ok := s.backends[name]
	if !ok {
		return nil, configurationError(name, fmt.Errorf("backend %q is not available", name))
	}
	return b, nil
}

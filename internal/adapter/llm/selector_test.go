package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/config"
	"github.com/reddishJade/sports-exem/internal/domain"
)

type namedBackend struct {
	MockBackend
	name string
}

func (b *namedBackend) Name() string { return b.name }

func newTestSelector(apiKey, mode string) *Selector {
	cfg := config.Default()
	cfg.DeepSeek.APIKey = apiKey
	cfg.Mode = mode
	return NewSelector(cfg, zap.NewNop(),
		&namedBackend{name: BackendDeepSeek},
		&namedBackend{name: BackendOllama},
		NewMockBackend(),
	)
}

func TestSelectorResolve(t *testing.T) {
	cases := []struct {
		name      string
		apiKey    string
		requested string
		want      string
	}{
		{"auto with credential", "sk", domain.BackendAuto, BackendDeepSeek},
		{"auto without credential", "", domain.BackendAuto, BackendOllama},
		{"empty without credential", "", "", BackendOllama},
		{"unknown with credential", "sk", "openai", BackendDeepSeek},
		{"unknown without credential", "", "openai", BackendOllama},
		{"explicit deepseek", "sk", BackendDeepSeek, BackendDeepSeek},
		{"explicit deepseek downgraded", "", BackendDeepSeek, BackendOllama},
		{"explicit ollama with credential", "sk", BackendOllama, BackendOllama},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := newTestSelector(tc.apiKey, "").Resolve(tc.requested)
			require.NoError(t, err)
			assert.Equal(t, tc.want, b.Name())
		})
	}
}

func TestSelectorMockMode(t *testing.T) {
	s := newTestSelector("sk", config.ModeMock)

	b, err := s.Resolve(BackendDeepSeek)
	require.NoError(t, err)
	assert.Equal(t, BackendMock, b.Name())

	b, err = s.Summarization()
	require.NoError(t, err)
	assert.Equal(t, BackendMock, b.Name())
}

func TestSelectorSummarizationIgnoresCredential(t *testing.T) {
	b, err := newTestSelector("", "").Summarization()
	require.NoError(t, err)
	assert.Equal(t, BackendDeepSeek, b.Name())
}

func TestSelectorMissingFallback(t *testing.T) {
	s := NewSelector(config.Default(), zap.NewNop(), &namedBackend{name: BackendDeepSeek})
	_, err := s.Resolve(domain.BackendAuto)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestDeepSeekTemperature(t *testing.T) {
	assert.Equal(t, 0.0, DeepSeekTemperature(domain.UseCaseCoding))
	assert.Equal(t, 1.0, DeepSeekTemperature(domain.UseCaseData))
	assert.Equal(t, 1.3, DeepSeekTemperature(domain.UseCaseGeneral))
	assert.Equal(t, 1.3, DeepSeekTemperature(domain.UseCaseTranslation))
	assert.Equal(t, 1.5, DeepSeekTemperature(domain.UseCaseCreative))
	assert.Equal(t, 1.3, DeepSeekTemperature(""))
	assert.Equal(t, 1.3, DeepSeekTemperature("poetry"))
}

func TestMockBackend(t *testing.T) {
	m := NewMockBackend()
	resp, err := m.Send(context.Background(), testMessages, Params{})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, `"hello"`)

	var streamed string
	require.NoError(t, m.Stream(context.Background(), testMessages, Params{}, func(d Delta) error {
		streamed += d.Content
		return nil
	}))
	assert.Equal(t, resp.Content, streamed)
}

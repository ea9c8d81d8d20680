package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/domain"
)

// scriptedBackend answers Send calls from a queue and records the prompts.
type scriptedBackend struct {
	replies []reply
	calls   [][]domain.ChatMessage
}

type reply struct {
	content string
	err     error
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Send(_ context.Context, messages []domain.ChatMessage, _ llm.Params) (*llm.Completion, error) {
	b.calls = append(b.calls, messages)
	if len(b.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := b.replies[0]
	b.replies = b.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Completion{Content: r.content}, nil
}

func (b *scriptedBackend) Stream(context.Context, []domain.ChatMessage, llm.Params, llm.StreamCallback) error {
	return errors.New("not supported")
}

// echoBackend returns the last message content, prefixed.
type echoBackend struct{ scriptedBackend }

func (b *echoBackend) Send(_ context.Context, messages []domain.ChatMessage, _ llm.Params) (*llm.Completion, error) {
	return &llm.Completion{Content: "merged: " + messages[len(messages)-1].Content}, nil
}

type staticProvider struct {
	backend llm.Backend
	err     error
}

func (p staticProvider) Summarization() (llm.Backend, error) { return p.backend, p.err }

func history(n int) []domain.Message {
	out := make([]domain.Message, n)
	for i := range out {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out[i] = domain.Message{Role: role, Content: fmt.Sprintf("m%d", i+1)}
	}
	return out
}

func TestShouldSummarize(t *testing.T) {
	assert.False(t, ShouldSummarize(0))
	for n := 1; n <= 45; n++ {
		assert.Equal(t, n%Threshold == 0, ShouldSummarize(n), "count %d", n)
	}
	assert.False(t, ShouldSummarize(-10))
}

func TestSummarizeFirstPass(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{{content: "  Wants to run 5km.  "}}}
	s := NewSummarizer(staticProvider{backend: backend}, zap.NewNop())

	got := s.Summarize(context.Background(), history(20), "")
	assert.Equal(t, "Wants to run 5km.", got)

	require.Len(t, backend.calls, 1)
	prompt := backend.calls[0]
	// system + last Threshold messages + instruction
	require.Len(t, prompt, Threshold+2)
	assert.Equal(t, domain.RoleSystem, prompt[0].Role)
	assert.NotContains(t, prompt[0].Content, "previous memory summary")
	assert.Contains(t, prompt[0].Content, "injury history")
	assert.Equal(t, "m11", prompt[1].Content)
	assert.Equal(t, "m20", prompt[Threshold].Content)
	assert.Equal(t, domain.RoleUser, prompt[Threshold+1].Role)
	assert.Contains(t, prompt[Threshold+1].Content, "third person")
}

func TestSummarizeMergesWithPrevious(t *testing.T) {
	backend := &scriptedBackend{replies: []reply{
		{content: "Now swims twice a week."},
		{content: "Runs and swims."},
	}}
	s := NewSummarizer(staticProvider{backend: backend}, zap.NewNop())

	got := s.Summarize(context.Background(), history(10), "Runs daily.")
	assert.Equal(t, "Runs and swims.", got)

	require.Len(t, backend.calls, 2)
	assert.Contains(t, backend.calls[0][0].Content, "Runs daily.")

	merge := backend.calls[1]
	require.Len(t, merge, 2)
	assert.Equal(t, domain.RoleSystem, merge[0].Role)
	assert.Contains(t, merge[1].Content, "Old summary:\nRuns daily.")
	assert.Contains(t, merge[1].Content, "New summary:\nNow swims twice a week.")
}

func TestSummarizeDegrades(t *testing.T) {
	t.Run("first pass failure keeps previous", func(t *testing.T) {
		backend := &scriptedBackend{replies: []reply{{err: errors.New("timeout")}}}
		s := NewSummarizer(staticProvider{backend: backend}, zap.NewNop())
		assert.Equal(t, "old", s.Summarize(context.Background(), history(10), "old"))
	})

	t.Run("first pass failure without previous", func(t *testing.T) {
		backend := &scriptedBackend{replies: []reply{{err: errors.New("timeout")}}}
		s := NewSummarizer(staticProvider{backend: backend}, zap.NewNop())
		assert.Empty(t, s.Summarize(context.Background(), history(10), ""))
	})

	t.Run("empty first pass keeps previous", func(t *testing.T) {
		backend := &scriptedBackend{replies: []reply{{content: " "}}}
		s := NewSummarizer(staticProvider{backend: backend}, zap.NewNop())
		assert.Equal(t, "old", s.Summarize(context.Background(), history(10), "old"))
		assert.Len(t, backend.calls, 1)
	})

	t.Run("merge failure concatenates", func(t *testing.T) {
		backend := &scriptedBackend{replies: []reply{{content: "new"}, {err: errors.New("503")}}}
		s := NewSummarizer(staticProvider{backend: backend}, zap.NewNop())
		assert.Equal(t, "old\n\nnew", s.Summarize(context.Background(), history(10), "old"))
	})

	t.Run("backend unavailable", func(t *testing.T) {
		s := NewSummarizer(staticProvider{err: errors.New("missing")}, zap.NewNop())
		assert.Equal(t, "old", s.Summarize(context.Background(), history(10), "old"))
	})
}

func TestMergeIsDeterministic(t *testing.T) {
	s := NewSummarizer(staticProvider{backend: &echoBackend{}}, zap.NewNop())
	ctx := context.Background()

	first := s.merge(ctx, &echoBackend{}, "old facts", "new facts")
	second := s.merge(ctx, &echoBackend{}, "old facts", "new facts")
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "merged: "))
}

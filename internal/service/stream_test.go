package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/domain"
)

type frameRecorder struct {
	frames []domain.Frame
	// failAt makes the write of frame number failAt (0-based) fail.
	failAt int
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{failAt: -1}
}

func (r *frameRecorder) write(f domain.Frame) error {
	if len(r.frames) == r.failAt {
		return errors.New("broken pipe")
	}
	r.frames = append(r.frames, f)
	return nil
}

func chunk(s string) *string { return &s }

func TestStreamMessageDeltaFrames(t *testing.T) {
	env := newTestEnv(t, "sk")
	env.primary.chunks = []string{"Hel", "lo"}
	rec := newFrameRecorder()

	err := env.svc.StreamMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: "greet me"}, rec.write)
	require.NoError(t, err)

	require.Len(t, rec.frames, 4)
	id := rec.frames[0].MessageID
	require.NotEmpty(t, id)
	assert.Equal(t, domain.OpenFrame(id), rec.frames[0])
	assert.Equal(t, domain.Frame{Chunk: chunk("Hel")}, rec.frames[1])
	assert.Equal(t, domain.Frame{Chunk: chunk("lo")}, rec.frames[2])
	assert.Equal(t, domain.CloseFrame(id), rec.frames[3])

	messages, err := env.store.AllMessages(context.Background(), env.conv.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, id, messages[1].MessageID)
	assert.Equal(t, "Hello", messages[1].Content)
	assert.Equal(t, 1, env.store.updates)

	// The placeholder is not part of the prompt.
	calls := env.primary.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0], 2)
}

func TestStreamMessageBackendFailure(t *testing.T) {
	env := newTestEnv(t, "sk")
	env.primary.chunks = []string{"Hel"}
	env.primary.streamErr = &llm.Error{Kind: llm.KindTransport, Backend: llm.BackendDeepSeek, Err: errors.New("reset by peer")}
	rec := newFrameRecorder()

	err := env.svc.StreamMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: "greet me"}, rec.write)
	require.NoError(t, err)

	require.Len(t, rec.frames, 3)
	assert.Equal(t, domain.Frame{Chunk: chunk("Hel")}, rec.frames[1])
	assert.Equal(t, domain.ErrorFrame("AI service is unavailable"), rec.frames[2])

	messages, err := env.store.AllMessages(context.Background(), env.conv.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Empty(t, messages[1].Content)
	assert.Zero(t, env.store.updates)
}

func TestStreamMessageEmptyStream(t *testing.T) {
	env := newTestEnv(t, "sk")
	rec := newFrameRecorder()

	err := env.svc.StreamMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: "greet me"}, rec.write)
	require.NoError(t, err)
	require.Len(t, rec.frames, 2)
	assert.Equal(t, domain.ErrorFrame("AI service returned an empty response"), rec.frames[1])
}

func TestStreamMessageClientGone(t *testing.T) {
	env := newTestEnv(t, "sk")
	env.primary.chunks = []string{"a", "b", "c"}
	rec := newFrameRecorder()
	rec.failAt = 2

	err := env.svc.StreamMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: "greet me"}, rec.write)
	require.NoError(t, err)

	// open + first chunk, then nothing: no error frame for a gone client.
	require.Len(t, rec.frames, 2)
	assert.Zero(t, env.store.updates)
}

func TestStreamMessageErrorsBeforeOpen(t *testing.T) {
	env := newTestEnv(t, "sk")
	rec := newFrameRecorder()

	err := env.svc.StreamMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: " "}, rec.write)
	assert.Equal(t, ErrorValidation, CodeOf(err))

	stranger := domain.UserContext{UserID: "u2"}
	err = env.svc.StreamMessage(context.Background(), stranger, env.conv.ConversationID,
		domain.TurnRequest{Message: "hi"}, rec.write)
	assert.Equal(t, ErrorForbidden, CodeOf(err))

	assert.Empty(t, rec.frames)
	assert.Zero(t, env.count(t))
}

func TestStreamMessageSummarizesBeforeCompletion(t *testing.T) {
	env := newTestEnv(t, "sk")
	env.primary.chunks = []string{"ok"}
	env.primary.reply = "summary"
	env.seed(t, 8)
	rec := newFrameRecorder()

	err := env.svc.StreamMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: "m9"}, rec.write)
	require.NoError(t, err)
	assert.Equal(t, domain.FrameStatusComplete, rec.frames[len(rec.frames)-1].Status)

	conv, err := env.store.GetConversation(context.Background(), env.conv.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "summary", conv.MemorySummary)
}

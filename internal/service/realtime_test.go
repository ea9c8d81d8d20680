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

type sinkEvent struct {
	broadcast bool
	event     domain.RealtimeEvent
}

type recordingSink struct {
	events []sinkEvent
}

func (s *recordingSink) Reply(e domain.RealtimeEvent) error {
	s.events = append(s.events, sinkEvent{event: e})
	return nil
}

func (s *recordingSink) Broadcast(e domain.RealtimeEvent) {
	s.events = append(s.events, sinkEvent{broadcast: true, event: e})
}

func TestHandleRealtimeMessage(t *testing.T) {
	env := newTestEnv(t, "sk")
	env.seed(t, 25)
	sink := &recordingSink{}

	env.svc.HandleRealtimeMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: "ready?"}, sink)

	require.Len(t, sink.events, 3)

	status := sink.events[0]
	assert.False(t, status.broadcast)
	assert.Equal(t, domain.EventTypeStatus, status.event.Type)
	assert.Equal(t, domain.StatusProcessing, status.event.Status)

	userEvent := sink.events[1]
	assert.True(t, userEvent.broadcast)
	assert.Equal(t, domain.EventTypeMessage, userEvent.event.Type)
	assert.Equal(t, domain.RoleUser, userEvent.event.Role)
	assert.Equal(t, "ready?", userEvent.event.Message)
	assert.Equal(t, domain.BackendAuto, userEvent.event.ServiceType)
	assert.NotEmpty(t, userEvent.event.MessageID)
	assert.NotEmpty(t, userEvent.event.Timestamp)

	reply := sink.events[2]
	assert.True(t, reply.broadcast)
	assert.Equal(t, domain.RoleAssistant, reply.event.Role)
	assert.Equal(t, "primary reply", reply.event.Message)
	assert.Equal(t, llm.BackendDeepSeek, reply.event.ServiceType)

	// The real-time channel uses the wider history window.
	calls := env.primary.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0], domain.RealtimeHistoryWindow+1)
}

func TestHandleRealtimeMessageValidation(t *testing.T) {
	env := newTestEnv(t, "sk")
	sink := &recordingSink{}

	env.svc.HandleRealtimeMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: ""}, sink)

	require.Len(t, sink.events, 1)
	assert.False(t, sink.events[0].broadcast)
	assert.Equal(t, domain.EventTypeError, sink.events[0].event.Type)
	assert.Equal(t, "message must not be empty", sink.events[0].event.Message)
	assert.Zero(t, env.count(t))
}

func TestHandleRealtimeMessageBackendFailure(t *testing.T) {
	env := newTestEnv(t, "sk")
	env.primary.sendErr = &llm.Error{Kind: llm.KindResponseFormat, Backend: llm.BackendDeepSeek, Err: errors.New("no choices")}
	sink := &recordingSink{}

	env.svc.HandleRealtimeMessage(context.Background(), env.user, env.conv.ConversationID,
		domain.TurnRequest{Message: "hello"}, sink)

	require.Len(t, sink.events, 3)
	assert.True(t, sink.events[1].broadcast)
	last := sink.events[2]
	assert.False(t, last.broadcast)
	assert.Equal(t, domain.EventTypeError, last.event.Type)
	assert.Equal(t, "AI service returned an invalid response", last.event.Message)
	assert.Equal(t, 1, env.count(t))
}

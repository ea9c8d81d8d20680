package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/domain"
)

func TestTurnFailureLogsUpstreamStatus(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := &Service{logger: zap.New(core)}
	tr := s.newTurn(domain.UserContext{UserID: "u1"}, "c1", domain.TurnRequest{Message: "hi"}, domain.LiveHistoryWindow)

	svcErr := tr.fail(&llm.Error{Kind: llm.KindTransport, Backend: llm.BackendDeepSeek, StatusCode: 503, Err: errors.New("overloaded")})
	assert.Equal(t, ErrorTransport, svcErr.Code)
	assert.Equal(t, TurnError, tr.state)

	entries := logs.FilterMessage("turn failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 503, fields["upstream_status"])
	assert.Equal(t, string(ErrorTransport), fields["code"])
}

func TestTurnFailureWithoutUpstreamStatus(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := &Service{logger: zap.New(core)}
	tr := s.newTurn(domain.UserContext{UserID: "u1"}, "c1", domain.TurnRequest{Message: "hi"}, domain.LiveHistoryWindow)

	tr.fail(newError(ErrorValidation, "message must not be empty", nil))

	entries := logs.FilterMessage("turn failed").All()
	require.Len(t, entries, 1)
	_, ok := entries[0].ContextMap()["upstream_status"]
	assert.False(t, ok)
}

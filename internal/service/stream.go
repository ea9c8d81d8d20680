package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/domain"
)

// FrameWriter delivers one frame to the client. It returns once the frame
// has been handed to the transport; an error means the client is gone.
type FrameWriter func(domain.Frame) error

// StreamState is a step of the streaming session.
type StreamState string

const (
	StreamOpened   StreamState = "opened"
	StreamEmitting StreamState = "emitting"
	StreamClosed   StreamState = "closed"
	StreamFailed   StreamState = "failed"
)

// errClientGone marks a failed frame write.
var errClientGone = errors.New("client disconnected")

// streamSession delivers one in-flight turn as frames.
type streamSession struct {
	turn      *turn
	write     FrameWriter
	state     StreamState
	messageID string
	buf       strings.Builder
}

func (ss *streamSession) enter(state StreamState) {
	ss.turn.logger.Debug("stream state", zap.String("from", string(ss.state)), zap.String("to", string(state)))
	ss.state = state
}

func (ss *streamSession) emit(f domain.Frame) error {
	if err := ss.write(f); err != nil {
		return errors.Join(errClientGone, err)
	}
	return nil
}

// StreamMessage runs a streaming turn. Errors detected before the stream is
// opened are returned so the caller can answer with a regular error
// response. Once the first frame is written every failure is reported as an
// error frame and StreamMessage returns nil.
func (s *Service) StreamMessage(ctx context.Context, user domain.UserContext, conversationID string, req domain.TurnRequest, write FrameWriter) error {
	t := s.newTurn(user, conversationID, req, domain.LiveHistoryWindow)
	if err := t.validate(ctx, conversationID); err != nil {
		return t.fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.TurnTimeout)
	defer cancel()

	if err := t.persistUser(ctx); err != nil {
		return t.fail(err)
	}
	if err := t.assemble(ctx); err != nil {
		return t.fail(err)
	}

	ss := &streamSession{turn: t, write: write}
	persistCtx := context.WithoutCancel(ctx)

	placeholder, err := s.store.AppendMessage(ctx, t.conv.ConversationID, domain.RoleAssistant, "")
	if err != nil {
		return t.fail(storeError(err, "failed to create assistant message"))
	}
	ss.messageID = placeholder.MessageID
	ss.enter(StreamOpened)
	t.logger = t.logger.With(zap.String("message_id", ss.messageID))
	if err := ss.emit(domain.OpenFrame(ss.messageID)); err != nil {
		ss.abort(err)
		return nil
	}

	ss.enter(StreamEmitting)
	t.enter(TurnInvoking)
	err = t.backend.Stream(ctx, t.prompt, t.params(), func(d llm.Delta) error {
		ss.buf.WriteString(d.Content)
		return ss.emit(domain.ChunkFrame(d.Content))
	})
	if err != nil {
		ss.abort(err)
		return nil
	}
	if strings.TrimSpace(ss.buf.String()) == "" {
		ss.abort(newError(ErrorEmptyResponse, "backend streamed no content", nil))
		return nil
	}

	t.enter(TurnPersistingAssistant)
	if err := s.store.UpdateMessageContent(persistCtx, ss.messageID, ss.buf.String()); err != nil {
		ss.abort(newError(ErrorInternal, "failed to save assistant message", err))
		return nil
	}
	t.maybeSummarize(persistCtx)

	ss.enter(StreamClosed)
	if err := ss.emit(domain.CloseFrame(ss.messageID)); err != nil {
		t.logger.Warn("client left before completion frame", zap.Error(err))
	}
	t.enter(TurnDone)
	return nil
}

// abort moves the session to the failed state and, if the client is still
// there, writes an error frame. The assistant message keeps its empty content.
func (ss *streamSession) abort(err error) {
	ss.enter(StreamFailed)
	if errors.Is(err, errClientGone) {
		ss.turn.enter(TurnError)
		ss.turn.logger.Warn("stream aborted by client", zap.Error(err))
		return
	}
	svcErr := ss.turn.fail(err)
	if writeErr := ss.write(domain.ErrorFrame(svcErr.PublicMessage())); writeErr != nil {
		ss.turn.logger.Warn("failed to write error frame", zap.Error(writeErr))
	}
}

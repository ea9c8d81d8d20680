package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// RealtimeSink delivers events of the real-time channel.
type RealtimeSink interface {
	// Reply sends an event to the client that started the turn.
	Reply(event domain.RealtimeEvent) error
	// Broadcast sends an event to every subscriber of the conversation.
	Broadcast(event domain.RealtimeEvent)
}

// HandleRealtimeMessage runs a turn received on the real-time channel. The
// sender gets a processing status, the group gets the user message and then
// the assistant reply. Failures are reported to the sender only.
func (s *Service) HandleRealtimeMessage(ctx context.Context, user domain.UserContext, conversationID string, req domain.TurnRequest, sink RealtimeSink) {
	t := s.newTurn(user, conversationID, req, domain.RealtimeHistoryWindow)
	if err := t.validate(ctx, conversationID); err != nil {
		s.replyError(sink, t.fail(err))
		return
	}

	if err := sink.Reply(domain.RealtimeEvent{Type: domain.EventTypeStatus, Status: domain.StatusProcessing}); err != nil {
		t.logger.Warn("failed to send status", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.TurnTimeout)
	defer cancel()

	if err := t.persistUser(ctx); err != nil {
		s.replyError(sink, t.fail(err))
		return
	}
	requested := req.ServiceType
	if requested == "" {
		requested = domain.BackendAuto
	}
	sink.Broadcast(messageEvent(t.userMessage, requested))

	if err := t.assemble(ctx); err != nil {
		s.replyError(sink, t.fail(err))
		return
	}
	content, err := t.invoke(ctx)
	if err != nil {
		s.replyError(sink, t.fail(err))
		return
	}

	persistCtx := context.WithoutCancel(ctx)
	msg, err := t.persistAssistant(persistCtx, content)
	if err != nil {
		s.replyError(sink, t.fail(err))
		return
	}
	sink.Broadcast(messageEvent(msg, t.backend.Name()))
	t.maybeSummarize(persistCtx)
	t.enter(TurnDone)
}

// ConnectionEstablished is the first event sent on a new connection.
func ConnectionEstablished(conversationID string) domain.RealtimeEvent {
	return domain.RealtimeEvent{
		Type:    domain.EventTypeConnectionEstablished,
		Message: "connected to conversation " + conversationID,
	}
}

// RealtimeError builds an error event for the sender.
func RealtimeError(err error) domain.RealtimeEvent {
	return domain.RealtimeEvent{Type: domain.EventTypeError, Message: AsError(err).PublicMessage()}
}

func (s *Service) replyError(sink RealtimeSink, err *Error) {
	if sendErr := sink.Reply(RealtimeError(err)); sendErr != nil {
		s.logger.Warn("failed to send error event", zap.Error(sendErr))
	}
}

func messageEvent(msg *domain.Message, serviceType string) domain.RealtimeEvent {
	return domain.RealtimeEvent{
		Type:        domain.EventTypeMessage,
		Message:     msg.Content,
		Role:        msg.Role,
		MessageID:   msg.MessageID,
		Timestamp:   msg.CreatedAt.Format(time.RFC3339Nano),
		ServiceType: serviceType,
	}
}

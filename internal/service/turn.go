package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/domain"
	"github.com/reddishJade/sports-exem/internal/memory"
	"github.com/reddishJade/sports-exem/internal/prompt"
)

// TurnState is a step of the turn state machine.
type TurnState string

const (
	TurnIdle                TurnState = "idle"
	TurnValidating          TurnState = "validating"
	TurnPersistingUser      TurnState = "persisting_user"
	TurnAssembling          TurnState = "assembling"
	TurnInvoking            TurnState = "invoking"
	TurnPersistingAssistant TurnState = "persisting_assistant"
	TurnMaybeSummarizing    TurnState = "maybe_summarizing"
	TurnDone                TurnState = "done"
	TurnError               TurnState = "error"
)

// turn carries the state of one request/response cycle.
type turn struct {
	svc    *Service
	user   domain.UserContext
	req    domain.TurnRequest
	window int
	logger *zap.Logger

	state       TurnState
	conv        *domain.Conversation
	userMessage *domain.Message
	backend     llm.Backend
	prompt      []domain.ChatMessage
}

func (s *Service) newTurn(user domain.UserContext, conversationID string, req domain.TurnRequest, window int) *turn {
	return &turn{
		svc:    s,
		user:   user,
		req:    req,
		window: window,
		state:  TurnIdle,
		logger: s.logger.With(
			zap.String("conversation_id", conversationID),
			zap.String("user_id", user.UserID),
			zap.String("use_case", string(req.UseCase)),
		),
	}
}

func (t *turn) enter(state TurnState) {
	t.logger.Debug("turn state", zap.String("from", string(t.state)), zap.String("to", string(state)))
	t.state = state
}

// fail moves the turn to the error state and returns err as a *Error.
func (t *turn) fail(err error) *Error {
	svcErr := AsError(err)
	t.enter(TurnError)
	fields := []zap.Field{
		zap.String("code", string(svcErr.Code)),
		zap.String("reason", svcErr.Reason),
		zap.Error(svcErr.Err),
	}
	var backendErr *llm.Error
	if errors.As(svcErr.Err, &backendErr) && backendErr.HTTPStatusCode() != 0 {
		fields = append(fields, zap.Int("upstream_status", backendErr.HTTPStatusCode()))
	}
	t.logger.Error("turn failed", fields...)
	return svcErr
}

// validate rejects blank input and checks access to the conversation.
func (t *turn) validate(ctx context.Context, conversationID string) error {
	t.enter(TurnValidating)
	if strings.TrimSpace(t.req.Message) == "" {
		return newError(ErrorValidation, "message must not be empty", nil)
	}
	conv, err := t.svc.AuthorizeChat(ctx, t.user, conversationID)
	if err != nil {
		return err
	}
	t.conv = conv
	return nil
}

// persistUser appends the user message, then bumps the conversation.
func (t *turn) persistUser(ctx context.Context) error {
	t.enter(TurnPersistingUser)
	msg, err := t.svc.store.AppendMessage(ctx, t.conv.ConversationID, domain.RoleUser, t.req.Message)
	if err != nil {
		return storeError(err, "failed to save user message")
	}
	t.userMessage = msg
	if err := t.svc.store.Touch(ctx, t.conv.ConversationID); err != nil {
		t.logger.Warn("failed to touch conversation", zap.Error(err))
	}
	return nil
}

// assemble resolves the backend and builds the prompt.
func (t *turn) assemble(ctx context.Context) error {
	t.enter(TurnAssembling)
	backend, err := t.svc.backends.Resolve(t.req.ServiceType)
	if err != nil {
		return backendError(err)
	}
	t.backend = backend
	t.logger = t.logger.With(zap.String("backend", backend.Name()))

	recent, err := t.svc.store.RecentMessages(ctx, t.conv.ConversationID, t.window)
	if err != nil {
		return newError(ErrorInternal, "failed to load history", err)
	}
	t.prompt = prompt.Assemble(t.conv, t.user, recent, t.window)
	return nil
}

func (t *turn) params() llm.Params {
	return llm.Params{UseCase: t.req.UseCase}
}

// invoke performs a whole-response backend call.
func (t *turn) invoke(ctx context.Context) (string, error) {
	t.enter(TurnInvoking)
	resp, err := t.backend.Send(ctx, t.prompt, t.params())
	if err != nil {
		return "", backendError(err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", newError(ErrorEmptyResponse, "backend returned no content", nil)
	}
	return resp.Content, nil
}

// persistAssistant appends the assistant message.
func (t *turn) persistAssistant(ctx context.Context, content string) (*domain.Message, error) {
	t.enter(TurnPersistingAssistant)
	msg, err := t.svc.store.AppendMessage(ctx, t.conv.ConversationID, domain.RoleAssistant, content)
	if err != nil {
		return nil, storeError(err, "failed to save assistant message")
	}
	return msg, nil
}

// maybeSummarize refreshes the memory summary when the message count is due.
// Failures are logged and never fail the turn.
func (t *turn) maybeSummarize(ctx context.Context) {
	t.enter(TurnMaybeSummarizing)
	if !t.conv.UseMemory {
		return
	}
	count, err := t.svc.store.CountMessages(ctx, t.conv.ConversationID)
	if err != nil {
		t.logger.Warn("failed to count messages", zap.Error(err))
		return
	}
	if !memory.ShouldSummarize(count) {
		return
	}

	messages, err := t.svc.store.AllMessages(ctx, t.conv.ConversationID)
	if err != nil {
		t.logger.Warn("failed to load messages for summary", zap.Error(err))
		return
	}
	summary := t.svc.summarizer.Summarize(ctx, messages, t.conv.MemorySummary)
	if summary == "" || summary == t.conv.MemorySummary {
		return
	}
	if err := t.svc.store.UpdateMemorySummary(ctx, t.conv.ConversationID, summary); err != nil {
		t.logger.Warn("failed to save memory summary", zap.Error(err))
		return
	}
	t.conv.MemorySummary = summary
	t.logger.Info("memory summary updated", zap.Int("message_count", count))
}

// SendMessage runs a blocking turn and returns the persisted assistant reply.
func (s *Service) SendMessage(ctx context.Context, user domain.UserContext, conversationID string, req domain.TurnRequest) (*domain.TurnResponse, error) {
	t := s.newTurn(user, conversationID, req, domain.LiveHistoryWindow)
	if err := t.validate(ctx, conversationID); err != nil {
		return nil, t.fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.TurnTimeout)
	defer cancel()

	if err := t.persistUser(ctx); err != nil {
		return nil, t.fail(err)
	}
	if err := t.assemble(ctx); err != nil {
		return nil, t.fail(err)
	}
	content, err := t.invoke(ctx)
	if err != nil {
		return nil, t.fail(err)
	}

	// The reply is stored even if the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)
	msg, err := t.persistAssistant(persistCtx, content)
	if err != nil {
		return nil, t.fail(err)
	}
	t.maybeSummarize(persistCtx)
	t.enter(TurnDone)

	return &domain.TurnResponse{
		Message:     msg.Content,
		MessageID:   msg.MessageID,
		Timestamp:   msg.CreatedAt,
		ServiceType: t.backend.Name(),
	}, nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/domain"
	"github.com/reddishJade/sports-exem/internal/policy"
	"github.com/reddishJade/sports-exem/internal/repository"
)

// DefaultConversationTitle is used when a conversation is created without a title.
const DefaultConversationTitle = "New conversation"

// CreateConversation creates a conversation owned by the caller.
func (s *Service) CreateConversation(ctx context.Context, user domain.UserContext, req domain.CreateConversationRequest) (*domain.Conversation, error) {
	if user.UserID == "" {
		return nil, newError(ErrorForbidden, "missing user", nil)
	}
	conv := &domain.Conversation{
		OwnerID:   user.UserID,
		Title:     strings.TrimSpace(req.Title),
		UseMemory: true,
	}
	if conv.Title == "" {
		conv.Title = DefaultConversationTitle
	}
	if req.UseMemory != nil {
		conv.UseMemory = *req.UseMemory
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, newError(ErrorInternal, "failed to create conversation", err)
	}
	s.logger.Info("conversation created", zap.String("conversation_id", conv.ConversationID), zap.String("user_id", user.UserID))
	return conv, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, user domain.UserContext) ([]domain.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, user.UserID)
	if err != nil {
		return nil, newError(ErrorInternal, "failed to list conversations", err)
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// GetConversation returns a conversation with all of its messages.
func (s *Service) GetConversation(ctx context.Context, user domain.UserContext, conversationID string) (*domain.ConversationDetail, error) {
	conv, err := s.authorize(ctx, user, conversationID, policy.ActionRead)
	if err != nil {
		return nil, err
	}
	messages, err := s.listMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &domain.ConversationDetail{Conversation: *conv, Messages: messages}, nil
}

// UpdateConversation changes the title and memory flag. The memory summary
// cannot be set by clients.
func (s *Service) UpdateConversation(ctx context.Context, user domain.UserContext, conversationID string, req domain.UpdateConversationRequest) (*domain.Conversation, error) {
	conv, err := s.authorize(ctx, user, conversationID, policy.ActionWrite)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, newError(ErrorValidation, "title must not be empty", nil)
		}
		conv.Title = title
	}
	if req.UseMemory != nil {
		conv.UseMemory = *req.UseMemory
	}
	if err := s.store.UpdateConversation(ctx, conv); err != nil {
		return nil, storeError(err, "failed to update conversation")
	}
	return conv, nil
}

// DeleteConversation deletes a conversation and its messages.
func (s *Service) DeleteConversation(ctx context.Context, user domain.UserContext, conversationID string) error {
	if _, err := s.authorize(ctx, user, conversationID, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, conversationID); err != nil {
		return storeError(err, "failed to delete conversation")
	}
	s.logger.Info("conversation deleted", zap.String("conversation_id", conversationID))
	return nil
}

// ListMessages returns all messages of a conversation, oldest first.
func (s *Service) ListMessages(ctx context.Context, user domain.UserContext, conversationID string) ([]domain.Message, error) {
	if _, err := s.authorize(ctx, user, conversationID, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.listMessages(ctx, conversationID)
}

// ClearMessages deletes every message of a conversation.
func (s *Service) ClearMessages(ctx context.Context, user domain.UserContext, conversationID string) error {
	if _, err := s.authorize(ctx, user, conversationID, policy.ActionWrite); err != nil {
		return err
	}
	if err := s.store.ClearMessages(ctx, conversationID); err != nil {
		return newError(ErrorInternal, "failed to clear messages", err)
	}
	return nil
}

// DeleteMessage deletes one message of a conversation.
func (s *Service) DeleteMessage(ctx context.Context, user domain.UserContext, conversationID, messageID string) error {
	if _, err := s.authorize(ctx, user, conversationID, policy.ActionWrite); err != nil {
		return err
	}
	err := s.store.DeleteMessage(ctx, conversationID, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrorNotFound, "message not found in this conversation", err)
	}
	if err != nil {
		return newError(ErrorInternal, "failed to delete message", err)
	}
	return nil
}

// AuthorizeChat checks that the caller may chat in the conversation.
func (s *Service) AuthorizeChat(ctx context.Context, user domain.UserContext, conversationID string) (*domain.Conversation, error) {
	return s.authorize(ctx, user, conversationID, policy.ActionChat)
}

// authorize loads the conversation and evaluates the access policy.
func (s *Service) authorize(ctx context.Context, user domain.UserContext, conversationID, action string) (*domain.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "failed to load conversation")
	}

	decision, err := s.policy.Evaluate(ctx, policy.Input{
		Action:   action,
		UserID:   user.UserID,
		UserType: string(user.UserType),
		OwnerID:  conv.OwnerID,
	})
	if err != nil {
		return nil, newError(ErrorInternal, "failed to evaluate access policy", err)
	}
	if !decision.Allowed() {
		s.logger.Warn("conversation access denied",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", user.UserID),
			zap.String("action", action),
			zap.String("reason", decision.Reason))
		return nil, newError(ErrorForbidden, decision.Reason, nil)
	}
	return conv, nil
}

func (s *Service) listMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	messages, err := s.store.AllMessages(ctx, conversationID)
	if err != nil {
		return nil, newError(ErrorInternal, "failed to list messages", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

func storeError(err error, reason string) *Error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrorNotFound, "conversation not found", err)
	}
	return newError(ErrorInternal, reason, err)
}

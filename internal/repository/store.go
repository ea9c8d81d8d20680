// Package repository defines the conversation store interface and its SQLite implementation.
package repository

import (
	"context"
	"errors"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// ErrNotFound is returned when a conversation or message does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for conversation persistence.
type Store interface {
	// Conversation operations
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, ownerID string) ([]domain.Conversation, error)
	UpdateConversation(ctx context.Context, conv *domain.Conversation) error
	DeleteConversation(ctx context.Context, conversationID string) error
	UpdateMemorySummary(ctx context.Context, conversationID, summary string) error
	Touch(ctx context.Context, conversationID string) error

	// Message operations
	AppendMessage(ctx context.Context, conversationID string, role domain.Role, content string) (*domain.Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	AllMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
	UpdateMessageContent(ctx context.Context, messageID, content string) error
	ClearMessages(ctx context.Context, conversationID string) error
	DeleteMessage(ctx context.Context, conversationID, messageID string) error

	// Lifecycle
	Close() error
}

// Package domain defines the core domain models for the AI chat assistant.
package domain

import "time"

// Conversation is a persisted thread of messages between one user and the assistant.
type Conversation struct {
	ConversationID string    `json:"id"`
	OwnerID        string    `json:"user"`
	Title          string    `json:"title"`
	UseMemory      bool      `json:"use_memory"`
	MemorySummary  string    `json:"memory_summary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Message is a single conversation entry.
type Message struct {
	MessageID      string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"timestamp"`
}

// ConversationDetail is a conversation together with its messages.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

// ChatMessage is the provider-agnostic prompt entry sent to a backend.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserContext describes the caller of a turn as reported by the auth layer.
type UserContext struct {
	UserID   string
	UserType UserType
	HeightCm float64
	WeightKg float64
}

// HasBodyMetrics reports whether both height and weight are known.
func (u UserContext) HasBodyMetrics() bool {
	return u.HeightCm > 0 && u.WeightKg > 0
}

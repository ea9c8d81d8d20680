package domain

import "time"

// TurnRequest is the inbound body of a chat turn on any channel.
type TurnRequest struct {
	Message     string  `json:"message"`
	ServiceType string  `json:"service_type,omitempty"`
	UseCase     UseCase `json:"use_case,omitempty"`
}

// TurnResponse is returned by a completed blocking turn.
type TurnResponse struct {
	Message     string    `json:"message"`
	MessageID   string    `json:"message_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceType string    `json:"service_type"`
}

// CreateConversationRequest is the body of a conversation creation request.
type CreateConversationRequest struct {
	Title     string `json:"title"`
	UseMemory *bool  `json:"use_memory,omitempty"`
}

// UpdateConversationRequest is the body of a conversation update. Nil fields are left unchanged.
type UpdateConversationRequest struct {
	Title     *string `json:"title,omitempty"`
	UseMemory *bool   `json:"use_memory,omitempty"`
}

// ErrorResponse is the error envelope returned to HTTP clients.
type ErrorResponse struct {
	Error string `json:"error"`
}

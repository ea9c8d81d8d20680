// Package v1 provides the HTTP handlers of the chat assistant API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation API
	e.POST("/v1/conversations", h.CreateConversation)
	e.GET("/v1/conversations", h.ListConversations)
	e.GET("/v1/conversations/:id", h.GetConversation)
	e.PATCH("/v1/conversations/:id", h.UpdateConversation)
	e.DELETE("/v1/conversations/:id", h.DeleteConversation)

	// Message API
	e.GET("/v1/conversations/:id/messages", h.ListMessages)
	e.POST("/v1/conversations/:id/clear", h.ClearMessages)
	e.DELETE("/v1/conversations/:id/messages/:message_id", h.DeleteMessage)

	// Chat API
	e.POST("/v1/conversations/:id/messages/send", h.SendMessage)
	e.POST("/v1/conversations/:id/messages/stream", h.StreamMessage)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

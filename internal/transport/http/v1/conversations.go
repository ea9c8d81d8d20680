package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// CreateConversation creates a conversation for the caller.
// POST /v1/conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	var req domain.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	conv, err := h.service.CreateConversation(c.Request().Context(), user, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// ListConversations lists the caller's conversations.
// GET /v1/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	convs, err := h.service.ListConversations(c.Request().Context(), user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": convs,
	})
}

// GetConversation returns a conversation with its messages.
// GET /v1/conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	detail, err := h.service.GetConversation(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateConversation changes the title or memory flag.
// PATCH /v1/conversations/:id
func (h *Handler) UpdateConversation(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	var req domain.UpdateConversationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	conv, err := h.service.UpdateConversation(c.Request().Context(), user, c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// DeleteConversation deletes a conversation and its messages.
// DELETE /v1/conversations/:id
func (h *Handler) DeleteConversation(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	if err := h.service.DeleteConversation(c.Request().Context(), user, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMessages returns all messages of a conversation.
// GET /v1/conversations/:id/messages
func (h *Handler) ListMessages(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	messages, err := h.service.ListMessages(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// ClearMessages deletes all messages of a conversation.
// POST /v1/conversations/:id/clear
func (h *Handler) ClearMessages(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	if err := h.service.ClearMessages(c.Request().Context(), user, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// DeleteMessage deletes one message.
// DELETE /v1/conversations/:id/messages/:message_id
func (h *Handler) DeleteMessage(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	if err := h.service.DeleteMessage(c.Request().Context(), user, c.Param("id"), c.Param("message_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

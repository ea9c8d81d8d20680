package v1

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// SendMessage runs a blocking chat turn.
// POST /v1/conversations/:id/messages/send
func (h *Handler) SendMessage(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	var req domain.TurnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.service.SendMessage(c.Request().Context(), user, c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// StreamMessage runs a streaming chat turn. The body is a sequence of
// newline-delimited JSON frames.
// POST /v1/conversations/:id/messages/stream
func (h *Handler) StreamMessage(c echo.Context) error {
	user, ok := UserFromRequest(c.Request())
	if !ok {
		return unauthorized(c)
	}
	var req domain.TurnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res := c.Response()
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "streaming not supported"})
	}

	started := false
	enc := json.NewEncoder(res)
	write := func(f domain.Frame) error {
		if !started {
			res.Header().Set(echo.HeaderContentType, "text/event-stream")
			res.Header().Set("Cache-Control", "no-cache")
			res.Header().Set("Connection", "keep-alive")
			res.WriteHeader(http.StatusOK)
			started = true
		}
		// Encode appends the newline that delimits frames.
		if err := enc.Encode(f); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := h.service.StreamMessage(c.Request().Context(), user, c.Param("id"), req, write)
	if err != nil {
		if started {
			h.logger.Error("stream failed after start", zap.Error(err))
			return nil
		}
		return writeError(c, err)
	}
	return nil
}

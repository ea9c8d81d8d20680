package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reddishJade/sports-exem/internal/domain"
	"github.com/reddishJade/sports-exem/internal/service"
)

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch service.CodeOf(err) {
	case service.ErrorValidation:
		return http.StatusBadRequest
	case service.ErrorForbidden:
		return http.StatusForbidden
	case service.ErrorNotFound:
		return http.StatusNotFound
	case service.ErrorConfiguration, service.ErrorTransport, service.ErrorResponseFormat, service.ErrorEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	return c.JSON(StatusFor(err), domain.ErrorResponse{Error: service.AsError(err).PublicMessage()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Error: "authentication required"})
}

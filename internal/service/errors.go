package service

import (
	"errors"
	"fmt"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
)

// ErrorCode identifies the kind of failure reported to callers.
type ErrorCode string

const (
	ErrorValidation     ErrorCode = "VALIDATION_ERROR"
	ErrorNotFound       ErrorCode = "NOT_FOUND"
	ErrorForbidden      ErrorCode = "FORBIDDEN"
	ErrorConfiguration  ErrorCode = "CONFIGURATION_ERROR"
	ErrorTransport      ErrorCode = "TRANSPORT_ERROR"
	ErrorResponseFormat ErrorCode = "RESPONSE_FORMAT_ERROR"
	ErrorEmptyResponse  ErrorCode = "EMPTY_RESPONSE"
	ErrorInternal       ErrorCode = "INTERNAL_ERROR"
)

var publicMessages = map[ErrorCode]string{
	ErrorValidation:     "message must not be empty",
	ErrorNotFound:       "conversation not found",
	ErrorForbidden:      "access to this conversation is not allowed",
	ErrorConfiguration:  "AI service is not configured",
	ErrorTransport:      "AI service is unavailable",
	ErrorResponseFormat: "AI service returned an invalid response",
	ErrorEmptyResponse:  "AI service returned an empty response",
	ErrorInternal:       "internal server error",
}

// Error is the only error type returned across the service boundary.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("service: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("service: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PublicMessage returns the client-facing message for the error. Reasons of
// validation and not-found errors are passed through; everything else uses a
// fixed text.
func (e *Error) PublicMessage() string {
	if (e.Code == ErrorValidation || e.Code == ErrorNotFound) && e.Reason != "" {
		return e.Reason
	}
	if msg, ok := publicMessages[e.Code]; ok {
		return msg
	}
	return publicMessages[ErrorInternal]
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// AsError converts any error into a *Error. Unrecognized errors become
// ErrorInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return backendError(err)
}

// CodeOf returns the error code of err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}

// backendError maps a normalized backend failure onto the service taxonomy.
func backendError(err error) *Error {
	switch llm.KindOf(err) {
	case llm.KindConfiguration:
		return newError(ErrorConfiguration, "backend not configured", err)
	case llm.KindTransport:
		return newError(ErrorTransport, "backend request failed", err)
	case llm.KindResponseFormat:
		return newError(ErrorResponseFormat, "unexpected backend response", err)
	default:
		return newError(ErrorInternal, "unexpected error", err)
	}
}

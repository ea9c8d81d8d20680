package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backend failures.
type ErrorKind string

const (
	// KindConfiguration means the backend cannot be used as configured,
	// e.g. a missing credential. Not retryable.
	KindConfiguration ErrorKind = "configuration"
	// KindTransport covers network and non-2xx HTTP failures.
	KindTransport ErrorKind = "transport"
	// KindResponseFormat means the backend answered with an unexpected payload.
	KindResponseFormat ErrorKind = "response_format"
)

// Error is a normalized backend failure.
type Error struct {
	Kind       ErrorKind
	Backend    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm: %s %s error [%d]: %v", e.Backend, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm: %s %s error: %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HTTPStatusCode returns the upstream status, or 0 when none was received.
func (e *Error) HTTPStatusCode() int {
	return e.StatusCode
}

// KindOf returns the kind of a backend error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return ""
}

func configurationError(backend string, err error) *Error {
	return &Error{Kind: KindConfiguration, Backend: backend, Err: err}
}

func transportError(backend string, status int, err error) *Error {
	return &Error{Kind: KindTransport, Backend: backend, StatusCode: status, Err: err}
}

func responseFormatError(backend string, err error) *Error {
	return &Error{Kind: KindResponseFormat, Backend: backend, Err: err}
}

package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps network failures: unreachable host, timeout, reset.
	ErrTransport = errors.New("backend unreachable")

	// ErrProtocol means the backend answered with a body of the wrong shape.
	ErrProtocol = errors.New("unexpected backend response")

	// ErrUnknownCommand is returned for robot commands outside the fixed set.
	ErrUnknownCommand = errors.New("unknown robot command")
)

// StatusError is a non-2xx reply. Message is taken from the body when the
// backend sent a JSON {message} or {error} string.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned status %d", e.Code)
}

// APIError is a 2xx reply whose body reports a failure (error flag set or
// success false). Message is user-facing.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsTransport reports whether err came from the network layer.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// UserMessage maps err to the sentence a tool panel shows. fallback is used
// for transport and protocol failures.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return fallback
}

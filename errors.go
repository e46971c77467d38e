package converse

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNoConversation indicates an operation needs a selected conversation.
	ErrNoConversation = errors.New("no conversation selected")

	// ErrBusy indicates a send or message load is already in flight.
	ErrBusy = errors.New("busy: a request is already in flight")

	// ErrUnsupportedMode indicates no transport serves the requested mode.
	ErrUnsupportedMode = errors.New("unsupported chat mode")

	// ErrStreamInterrupted indicates a stream ended without the [DONE] sentinel.
	ErrStreamInterrupted = errors.New("stream ended before completion sentinel")

	// ErrNotFound indicates the backend has no matching resource.
	ErrNotFound = errors.New("not found")
)

// APIError is an application-level failure reported inside a response
// envelope whose code is not 200.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// HTTPError is a non-success HTTP status returned by the backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// ErrQueueClosed is returned by Queue.Next after Close once the queue is empty.
var ErrQueueClosed = errors.New("queue closed")

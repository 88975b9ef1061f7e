package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// TransportError means no HTTP response was received: connection failures,
// cancelled contexts and an open circuit breaker all end up here.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned for every non-2xx response.
type HTTPStatusError struct {
	Op         string
	StatusCode int
	// Message is the server-supplied message, empty when the body had none
	Message string
	// Payload is the raw response body
	Payload []byte
}

func (e *HTTPStatusError) Error() string {
	base := fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	if e.Message == "" {
		return base
	}
	return base + ": " + e.Message
}

// ParseError means a 2xx response carried a body that is not valid JSON for
// the expected type.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response body: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// newStatusError builds the error for a non-2xx response. A body that is not
// JSON leaves Message empty so the status-derived text is used.
func newStatusError(op string, status int, body []byte) *HTTPStatusError {
	e := &HTTPStatusError{Op: op, StatusCode: status, Payload: body}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	for _, field := range []string{"message", "error"} {
		if msg, ok := payload[field].(string); ok && msg != "" {
			e.Message = msg
			break
		}
	}
	return e
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

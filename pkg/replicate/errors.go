package replicate

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingToken        = errors.New("no API token provided")
	ErrInvalidToken        = errors.New("malformed API token")
	ErrInvalidBaseURL      = errors.New("invalid base URL")
	ErrMaxAttemptsExceeded = errors.New("maximum polling attempts exceeded")
	ErrMissingID           = errors.New("empty resource ID")
	ErrUnknownStatus       = errors.New("unknown status")
	ErrForeignURL          = errors.New("URL is not on the configured API host")
)

// ConfigError is returned before any request is sent when the Config
// cannot be used.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("replicate: invalid configuration (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError wraps a failure to send a request or read its response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("replicate: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is returned for any non-2xx response. Body holds the response
// body exactly as the server sent it.
type APIError struct {
	StatusCode int
	Body       string

	// Populated when the body is a JSON problem document
	Title  string
	Detail string
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: string(body)}
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		e.Title, e.Detail = problem.Title, problem.Detail
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("replicate: API error (status %d): %s", e.StatusCode, e.Body)
}

// DecodeError is returned when a 2xx response body does not match the
// expected shape.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("replicate: failed to parse response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InvalidVersionError is returned for version identifiers that are neither
// "owner/name", "owner/name:id" nor a bare version ID.
type InvalidVersionError struct {
	Version string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("replicate: invalid version string: %q", e.Version)
}

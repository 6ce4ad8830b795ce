// Package api provides the HTTP client for the sprout service: the
// authenticated request pipeline (credential attachment, single
// refresh-and-retry on 401) and the typed remote gateway operations the
// sync engine and mutation coordinator consume.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrUnauthorized) to check.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrServerError  = errors.New("api: server error")

	// ErrNetwork marks transport-level failures (unreachable host, timeout).
	// Recoverable: the caller surfaces it and leaves local state alone.
	ErrNetwork = errors.New("api: network error")

	// ErrDecode marks a syntactically invalid response payload.
	ErrDecode = errors.New("api: malformed response")
)

// fallbackMessage is shown when the server gives no decodable error body.
const fallbackMessage = "the server returned an unexpected error"

// APIError wraps a sentinel error with the HTTP status code and the decoded
// server error envelope ({message, status, timestamp}).
type APIError struct {
	StatusCode int
	Message    string
	Timestamp  int64
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorEnvelope is the uniform failure body the service returns.
type errorEnvelope struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// newAPIError builds an APIError from a status code and raw error body.
// A missing or undecodable envelope falls back to a safe human-readable
// message — user-visible failures always carry one.
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    fallbackMessage,
		Err:        classifyStatus(statusCode),
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		apiErr.Message = env.Message
		apiErr.Timestamp = env.Timestamp
	}

	return apiErr
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

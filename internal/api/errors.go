package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the three error categories the console distinguishes:
// an HTTP error response, no response at all, and a local setup problem.
var (
	// ErrNoResponse means the request never produced an HTTP response
	// (connection refused, timeout, DNS failure). Surfaced with status 0.
	ErrNoResponse = errors.New("no response from backend")

	// ErrRequestSetup means the request could not be built locally.
	ErrRequestSetup = errors.New("request setup failed")

	// ErrInvalidTaskID is returned before any request is made when a task
	// identifier fails validation.
	ErrInvalidTaskID = errors.New("invalid task id")

	// ErrNotFound is the base error for 404 responses.
	ErrNotFound = errors.New("resource not found")
)

// APIError wraps an HTTP error response from the backend.
type APIError struct {
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Operation, e.Status, e.Body)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError builds an APIError for an HTTP error response, extracting the
// most specific backend-provided message available.
func newAPIError(operation string, status int, body []byte) *APIError {
	var base error
	if status == http.StatusNotFound {
		base = ErrNotFound
	}
	return &APIError{
		Operation: operation,
		Status:    status,
		Body:      extractMessage(body, fmt.Sprintf("request failed with status %d", status)),
		Err:       base,
	}
}

// extractMessage picks the backend error message by priority:
// error_message, then error, then the supplied fallback.
func extractMessage(body []byte, fallback string) string {
	var payload struct {
		ErrorMessage string `json:"error_message"`
		Error        string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.ErrorMessage != "" {
			return payload.ErrorMessage
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if len(body) > 0 && len(body) < 512 {
		return string(body)
	}
	return fallback
}

// IsNotFound reports whether the error is a 404 from the backend.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status == http.StatusNotFound
	}
	return false
}

// IsNoResponse reports whether the request failed without any HTTP response.
func IsNoResponse(err error) bool {
	return errors.Is(err, ErrNoResponse)
}

package tolqc

import (
	"fmt"
	"net/http"
)

// APIError is returned when the API answers with a non-success status.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tolqc: %s failed: HTTP %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("tolqc: %s failed: HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newAPIError(op string, status int, body []byte) *APIError {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return &APIError{Operation: op, StatusCode: status, Body: msg}
}

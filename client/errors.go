package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the task API. Transport failures
// (connection refused, timeouts) are returned as plain wrapped errors
// instead.
type APIError struct {
	StatusCode int
	Message    string
	Details    []string
}

// Error returns the error message.
func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Message, e.StatusCode, strings.Join(e.Details, "; "))
}

// IsValidation reports whether err is a validation failure (HTTP 400).
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

// IsNotFound reports whether err is an unknown-id failure (HTTP 404).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

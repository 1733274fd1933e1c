package notion

import (
	"errors"
	"fmt"
)

// Common errors returned by this package.
var (
	// ErrNotFound indicates the requested database or page does not exist
	// or is not shared with the integration.
	ErrNotFound = errors.New("not found in Notion")

	// ErrAuth indicates a missing or invalid integration token.
	ErrAuth = errors.New("Notion authentication error")

	// ErrUnavailable indicates any other non-success response.
	ErrUnavailable = errors.New("Notion API unavailable")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Notion")

	// ErrInvalidResponse indicates a response body that could not be parsed.
	ErrInvalidResponse = errors.New("invalid response from Notion")

	// ErrMalformedProperty indicates a property payload missing a required key.
	ErrMalformedProperty = errors.New("malformed property")

	// ErrUnsupportedKind indicates a property kind this package does not handle.
	ErrUnsupportedKind = errors.New("unsupported property kind")

	// ErrPropertyNotFound indicates a lookup of a property name a page or
	// database does not carry.
	ErrPropertyNotFound = errors.New("property not found")
)

// APIError represents a non-success response from the Notion API.
type APIError struct {
	StatusCode int
	Code       string // Error code from API (e.g., "object_not_found", "unauthorized")
	Message    string
	Body       string // Raw response body, kept for diagnostics
	err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Notion API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap returns the sentinel matching the status class.
func (e *APIError) Unwrap() error {
	return e.err
}

// PropertyError reports a property that could not be converted.
type PropertyError struct {
	Name string
	Kind Kind
	Err  error
}

func (e *PropertyError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("property %q (%s): %v", e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("property of kind %s: %v", e.Kind, e.Err)
}

func (e *PropertyError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

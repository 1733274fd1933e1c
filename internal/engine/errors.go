package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by engines.
var (
	// ErrPaperNotFound indicates the engine has no record for the identifier.
	ErrPaperNotFound = errors.New("paper not found")

	// ErrEngineUnavailable indicates a non-success response other than not found.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with engine")

	// ErrInvalidResponse indicates a response body that could not be parsed.
	ErrInvalidResponse = errors.New("invalid response from engine")

	// ErrInvalidIdentifier indicates an identifier the engine cannot look up.
	ErrInvalidIdentifier = errors.New("invalid paper identifier")

	// ErrUnknownField indicates a template field name with no accessor.
	ErrUnknownField = errors.New("unknown engine field")
)

// FetchError carries the identifier and raw response of a failed lookup.
type FetchError struct {
	Engine     string
	Identifier string
	URL        string
	StatusCode int
	Body       string
	err        error
}

// NewFetchError classifies a non-success response: 404 maps to
// ErrPaperNotFound, anything else to ErrEngineUnavailable.
func NewFetchError(engineName, identifier, url string, status int, body []byte) *FetchError {
	e := &FetchError{
		Engine:     engineName,
		Identifier: identifier,
		URL:        url,
		StatusCode: status,
		Body:       string(body),
		err:        ErrEngineUnavailable,
	}
	if status == http.StatusNotFound {
		e.err = ErrPaperNotFound
	}
	return e
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v (identifier %s, status %d, url %s): %s",
		e.Engine, e.err, e.Identifier, e.StatusCode, e.URL, e.Body)
}

func (e *FetchError) Unwrap() error {
	return e.err
}

// IsNotFound returns true if the error indicates a missing paper.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaperNotFound)
}

package analyzer

import (
	"errors"
	"fmt"
)

// Validation errors, detected before any network call.
var (
	ErrEmptyInput          = errors.New("URL is required")
	ErrInvalidURL          = errors.New("invalid URL: use a format like yoursite.com or https://yoursite.com")
	ErrUnsupportedProtocol = errors.New("unsupported protocol: only http and https are allowed")
)

// FetchError reports an upstream fetch failure: either a non-2xx response
// (StatusCode and Status are set) or a transport error (Err is set).
type FetchError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("failed to fetch the page (%s)", e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch the page: %v", e.Err)
	}
	return "failed to fetch the page"
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

package arxiv

import (
	"errors"
	"fmt"
)

// Errors returned by the arXiv client.
var (
	// ErrRateLimited indicates the API asked us to slow down.
	ErrRateLimited = errors.New("arXiv rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with arXiv")

	// ErrInvalidResponse indicates a feed that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from arXiv")
)

// APIError is a non-success HTTP status from the export API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arXiv API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode == 503
	}
	return false
}

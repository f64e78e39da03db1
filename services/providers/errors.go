package providers

import (
	"errors"
	"net/http"

	"lyrics-finder-go/circuitbreaker"
)

var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrAuthFailed          = errors.New("provider authentication failed")
	ErrRateLimited         = errors.New("provider rate limited")
	ErrNotFound            = errors.New("not found")
	ErrFetchFailed         = errors.New("page fetch failed")
)

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// ClassifyStatus maps an upstream HTTP status to the error taxonomy.
// It returns nil for 2xx.
func ClassifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthFailed
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrProviderUnavailable
	}
}

// ErrorKind returns a stable name for err, used in logs, metrics and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "provider_unavailable"
	}
}

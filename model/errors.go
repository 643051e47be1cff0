package model

import "fmt"

// ProviderError wraps a failed provider API call with its HTTP status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
}

// Unwrap returns the SDK error.
func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient (rate limit or server error).
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

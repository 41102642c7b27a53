package driver

import (
	"fmt"
	"time"
)

// ProviderError is returned when a provider responds with a non-2xx status.
//
// Code and Type carry the provider's machine-readable error identifiers when
// the response body could be parsed; Message holds the human-readable text.
// RetryAfter is populated from the Retry-After header when present.
// RawResponse must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Code        string
	Type        string
	Message     string
	RetryAfter  time.Duration
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

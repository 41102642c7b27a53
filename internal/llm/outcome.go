package llm

import (
	"errors"
	"fmt"
	"time"
)

// Failure kind tags exposed to callers, stable for wire use.
const (
	FailureRateLimit    = "rate_limit"
	FailureQuotaBilling = "insufficient_quota"
)

// ErrNoAnswer is the opaque failure: the call produced no usable result for a
// reason not worth surfacing in detail. Callers decide whether that becomes a
// 502 or a locally computed fallback.
var ErrNoAnswer = errors.New("llm: no answer")

// ThrottledError signals provider rate-limit throttling. The cooldown has
// already been armed by the time a caller sees it; RetryAfter carries the
// hint so routes can propagate it (e.g. as a Retry-After header).
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("llm: provider throttled, retry after %s", e.RetryAfter)
}

// RetryAfterSec returns the hint rounded up to whole seconds.
func (e *ThrottledError) RetryAfterSec() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// QuotaExhaustedError signals that the provider account is out of
// credits/billing quota. Retrying sooner cannot help, so no cooldown is
// armed and no retry hint is carried.
type QuotaExhaustedError struct {
	Message string
}

func (e *QuotaExhaustedError) Error() string {
	if e.Message == "" {
		return "llm: provider quota exhausted"
	}
	return "llm: provider quota exhausted: " + e.Message
}

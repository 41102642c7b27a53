package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alekingreal/ajudaita/internal/llm/driver"
)

// fallbackRetryAfter applies when a throttle reply carries no usable hint.
const fallbackRetryAfter = 30 * time.Second

// quotaCodes are machine-readable provider error codes/types that mean the
// account is out of billing quota rather than momentarily throttled.
var quotaCodes = map[string]struct{}{
	"insufficient_quota":         {},
	"billing_hard_limit_reached": {},
	"billing_not_active":         {},
}

// quotaPhrases is the message-text fallback when the provider omits a code.
// Fragile by nature (depends on upstream wording); kept in one place so
// contract tests against the live provider have a single point to update.
var quotaPhrases = []string{
	"insufficient_quota",
	"exceeded your current quota",
	"billing",
	"credit",
}

// retryHintPattern matches "try again in 20s" / "try again in 1.5 seconds".
var retryHintPattern = regexp.MustCompile(`try again in ([0-9]+(?:\.[0-9]+)?)\s*s`)

// classify429 splits a provider 429 into the two cases that matter: terminal
// quota exhaustion versus retryable throttling. Ambiguous input is treated as
// throttling so a cooldown is always armed for unclassifiable 429s.
func classify429(perr *driver.ProviderError) error {
	if isQuotaExhausted(perr) {
		return &QuotaExhaustedError{Message: perr.Message}
	}
	return &ThrottledError{RetryAfter: retryAfterHint(perr)}
}

func isQuotaExhausted(perr *driver.ProviderError) bool {
	if perr == nil {
		return false
	}

	if _, ok := quotaCodes[strings.ToLower(strings.TrimSpace(perr.Code))]; ok {
		return true
	}
	if _, ok := quotaCodes[strings.ToLower(strings.TrimSpace(perr.Type))]; ok {
		return true
	}

	message := strings.ToLower(perr.Message)
	for _, phrase := range quotaPhrases {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	return false
}

// retryAfterHint resolves the wait the provider asked for: header value
// first, then a "try again in Ns" scan of the message, then the fixed
// fallback.
func retryAfterHint(perr *driver.ProviderError) time.Duration {
	if perr == nil {
		return fallbackRetryAfter
	}

	if perr.RetryAfter > 0 {
		return perr.RetryAfter
	}

	if match := retryHintPattern.FindStringSubmatch(strings.ToLower(perr.Message)); len(match) == 2 {
		if secs, err := strconv.ParseFloat(match[1], 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	return fallbackRetryAfter
}

// isTransient reports whether a dispatch failure is worth a local retry:
// request timeouts, connection-level failures, and the 5xx/408/409 family.
// 429 is explicitly excluded; it belongs to the cooldown mechanism.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) {
		status := perr.StatusCode
		return status >= 500 || status == 408 || status == 409
	}

	// Anything else from the HTTP client is transport-level (connection
	// reset, DNS hiccup) and worth another attempt.
	return true
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alekingreal/ajudaita/internal/llm/driver"
)

func TestClassify429QuotaByCode(t *testing.T) {
	perr := &driver.ProviderError{StatusCode: 429, Code: "insufficient_quota", Message: "whatever"}

	var quota *QuotaExhaustedError
	require.ErrorAs(t, classify429(perr), &quota)
}

func TestClassify429QuotaByType(t *testing.T) {
	perr := &driver.ProviderError{StatusCode: 429, Type: "billing_hard_limit_reached"}

	var quota *QuotaExhaustedError
	require.ErrorAs(t, classify429(perr), &quota)
}

func TestClassify429QuotaByMessagePhrase(t *testing.T) {
	perr := &driver.ProviderError{
		StatusCode: 429,
		Message:    "You exceeded your current quota, please check your plan and billing details.",
	}

	var quota *QuotaExhaustedError
	require.ErrorAs(t, classify429(perr), &quota)
}

func TestClassify429ThrottleWithHeaderHint(t *testing.T) {
	perr := &driver.ProviderError{StatusCode: 429, Message: "rate limit reached", RetryAfter: 12 * time.Second}

	var throttled *ThrottledError
	require.ErrorAs(t, classify429(perr), &throttled)
	require.Equal(t, 12*time.Second, throttled.RetryAfter)
	require.Equal(t, 12, throttled.RetryAfterSec())
}

func TestClassify429ThrottleWithMessageHint(t *testing.T) {
	perr := &driver.ProviderError{
		StatusCode: 429,
		Message:    "Rate limit reached for gpt-4o-mini. Please try again in 20s.",
	}

	var throttled *ThrottledError
	require.ErrorAs(t, classify429(perr), &throttled)
	require.Equal(t, 20*time.Second, throttled.RetryAfter)
}

func TestClassify429ThrottleFallbackHint(t *testing.T) {
	perr := &driver.ProviderError{StatusCode: 429, Message: "slow down"}

	var throttled *ThrottledError
	require.ErrorAs(t, classify429(perr), &throttled)
	require.Equal(t, fallbackRetryAfter, throttled.RetryAfter)
}

func TestClassify429AmbiguousTreatedAsThrottle(t *testing.T) {
	perr := &driver.ProviderError{StatusCode: 429}

	var throttled *ThrottledError
	require.ErrorAs(t, classify429(perr), &throttled)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"status 503", &driver.ProviderError{StatusCode: 503}, true},
		{"status 500", &driver.ProviderError{StatusCode: 500}, true},
		{"status 408", &driver.ProviderError{StatusCode: 408}, true},
		{"status 409", &driver.ProviderError{StatusCode: 409}, true},
		{"status 429", &driver.ProviderError{StatusCode: 429}, false},
		{"status 400", &driver.ProviderError{StatusCode: 400}, false},
		{"status 401", &driver.ProviderError{StatusCode: 401}, false},
		{"transport", fmt.Errorf("request failed: %w", errors.New("connection reset by peer")), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isTransient(tc.err))
		})
	}
}

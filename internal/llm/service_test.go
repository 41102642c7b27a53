package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alekingreal/ajudaita/internal/llm/driver"
)

// scriptedDriver returns the queued errors in order, then succeeds with the
// configured response.
type scriptedDriver struct {
	errs     []error
	response *driver.Response
	calls    int
	lastReq  *driver.Request
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	d.calls++
	d.lastReq = req
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}
	if d.response != nil {
		return d.response, nil
	}
	return &driver.Response{Content: "ok", FinishReason: "stop"}, nil
}

func newTestService(t *testing.T, drv driver.Driver) (*Service, *RateLimiter) {
	t.Helper()

	limiter, clock := newTestLimiter(100, 1000000)

	svc, err := NewService(drv, limiter, Options{Model: "test-model"}, nil)
	require.NoError(t, err)

	svc.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.Advance(d)
		return nil
	}
	return svc, limiter
}

func TestCompleteReturnsText(t *testing.T) {
	drv := &scriptedDriver{response: &driver.Response{Content: "  an answer  ", FinishReason: "stop"}}
	svc, _ := newTestService(t, drv)

	text, err := svc.Complete(context.Background(), CompletionRequest{User: "hello"})
	require.NoError(t, err)
	require.Equal(t, "an answer", text)
	require.Equal(t, 1, drv.calls)
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	drv := &scriptedDriver{
		errs: []error{
			&driver.ProviderError{StatusCode: 503, Message: "unavailable"},
			&driver.ProviderError{StatusCode: 503, Message: "unavailable"},
		},
		response: &driver.Response{Content: `{"plan":"ok"}`, FinishReason: "stop"},
	}
	svc, _ := newTestService(t, drv)

	parsed, err := svc.CompleteJSON(context.Background(), CompletionRequest{User: "make a plan"})
	require.NoError(t, err)
	require.Equal(t, "ok", parsed["plan"])
	require.Equal(t, 3, drv.calls, "two transient failures then success means exactly three attempts")
}

func TestCompleteDoesNotRetryThrottle(t *testing.T) {
	drv := &scriptedDriver{
		errs: []error{&driver.ProviderError{StatusCode: 429, Message: "please try again in 15s"}},
	}
	svc, limiter := newTestService(t, drv)

	_, err := svc.Complete(context.Background(), CompletionRequest{User: "hello"})

	var throttled *ThrottledError
	require.ErrorAs(t, err, &throttled)
	require.Equal(t, 15*time.Second, throttled.RetryAfter)
	require.Equal(t, 1, drv.calls, "a 429 must never be retried inline")

	// The throttle armed the shared cooldown.
	require.Greater(t, limiter.CooldownRemaining(), 14*time.Second)
}

func TestCompleteQuotaExhaustionArmsNoCooldown(t *testing.T) {
	drv := &scriptedDriver{
		errs: []error{&driver.ProviderError{StatusCode: 429, Code: "insufficient_quota", Message: "exceeded your current quota"}},
	}
	svc, limiter := newTestService(t, drv)

	_, err := svc.Complete(context.Background(), CompletionRequest{User: "hello"})

	var quota *QuotaExhaustedError
	require.ErrorAs(t, err, &quota)
	require.Equal(t, 1, drv.calls)
	require.Zero(t, limiter.CooldownRemaining(), "quota exhaustion must not block subsequent calls")
}

func TestCompleteExhaustedRetriesAreOpaque(t *testing.T) {
	drv := &scriptedDriver{
		errs: []error{
			&driver.ProviderError{StatusCode: 500},
			&driver.ProviderError{StatusCode: 502},
			&driver.ProviderError{StatusCode: 503},
		},
	}
	svc, _ := newTestService(t, drv)

	_, err := svc.Complete(context.Background(), CompletionRequest{User: "hello"})
	require.ErrorIs(t, err, ErrNoAnswer)
	require.Equal(t, 3, drv.calls)
}

func TestCompleteHardClientErrorIsOpaqueWithoutRetry(t *testing.T) {
	drv := &scriptedDriver{
		errs: []error{&driver.ProviderError{StatusCode: 400, Message: "bad request"}},
	}
	svc, _ := newTestService(t, drv)

	_, err := svc.Complete(context.Background(), CompletionRequest{User: "hello"})
	require.ErrorIs(t, err, ErrNoAnswer)
	require.Equal(t, 1, drv.calls)
}

func TestCompleteJSONSalvagesWrappedObject(t *testing.T) {
	drv := &scriptedDriver{
		response: &driver.Response{Content: `Sure! Here it is: {"a":1,"b":[2,3]} `, FinishReason: "stop"},
	}
	svc, _ := newTestService(t, drv)

	parsed, err := svc.CompleteJSON(context.Background(), CompletionRequest{User: "json please"})
	require.NoError(t, err)
	require.Equal(t, float64(1), parsed["a"])
}

func TestCompleteJSONUnparseableIsOpaque(t *testing.T) {
	drv := &scriptedDriver{
		response: &driver.Response{Content: "I cannot produce JSON today", FinishReason: "stop"},
	}
	svc, _ := newTestService(t, drv)

	_, err := svc.CompleteJSON(context.Background(), CompletionRequest{User: "json please"})
	require.ErrorIs(t, err, ErrNoAnswer)
}

func TestCompleteJSONSetsResponseFormat(t *testing.T) {
	drv := &scriptedDriver{response: &driver.Response{Content: `{}`, FinishReason: "stop"}}
	svc, _ := newTestService(t, drv)

	_, err := svc.CompleteJSON(context.Background(), CompletionRequest{User: "json please"})
	require.NoError(t, err)
	require.NotNil(t, drv.lastReq.ResponseFormat)
	require.Equal(t, "json_object", drv.lastReq.ResponseFormat.Type)
}

func TestCompleteVisionAddsSurcharge(t *testing.T) {
	drv := &scriptedDriver{response: &driver.Response{Content: "a cat", FinishReason: "stop"}}
	svc, limiter := newTestService(t, drv)

	text, err := svc.CompleteVision(context.Background(), VisionRequest{
		CompletionRequest: CompletionRequest{User: "what is this?"},
		Images:            []string{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"},
	})
	require.NoError(t, err)
	require.Equal(t, "a cat", text)

	diag := limiter.Snapshot()
	require.GreaterOrEqual(t, diag.TokensUsed, 2*VisionSurcharge)

	// Image blocks travel alongside the text block.
	require.Len(t, drv.lastReq.Messages, 1)
	require.Len(t, drv.lastReq.Messages[0].Content, 3)
}

func TestCompleteVisionRequiresImages(t *testing.T) {
	svc, _ := newTestService(t, &scriptedDriver{})

	_, err := svc.CompleteVision(context.Background(), VisionRequest{
		CompletionRequest: CompletionRequest{User: "what is this?"},
	})
	require.Error(t, err)
}

func TestNewServiceValidation(t *testing.T) {
	limiter := NewRateLimiter(3, 1000)

	_, err := NewService(nil, limiter, Options{Model: "m"}, nil)
	require.Error(t, err)

	_, err = NewService(&scriptedDriver{}, nil, Options{Model: "m"}, nil)
	require.Error(t, err)

	_, err = NewService(&scriptedDriver{}, limiter, Options{}, nil)
	require.Error(t, err)
}

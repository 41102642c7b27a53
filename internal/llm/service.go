package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/alekingreal/ajudaita/internal/llm/driver"
	"github.com/alekingreal/ajudaita/internal/metrics"
)

// Options configures the dispatcher. Zero values fall back to the defaults
// below, except SmoothingDelay where zero disables the inter-call pause.
type Options struct {
	Model          string
	Timeout        time.Duration
	Temperature    float64
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	SmoothingDelay time.Duration
}

const (
	defaultTimeout        = 55 * time.Second
	maxTimeout            = 5 * time.Minute
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 8 * time.Second
	defaultSmoothingDelay = 300 * time.Millisecond

	// promptPreviewLimit bounds how much prompt text reaches the logs.
	promptPreviewLimit = 120
)

// CompletionRequest describes one free-form or JSON-mode completion.
type CompletionRequest struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
}

// VisionRequest adds one or more image URLs (https or data URLs) to a
// completion.
type VisionRequest struct {
	CompletionRequest
	Images []string
}

// Service multiplexes callers onto the provider through the admission gate.
// Every dispatch runs: token estimate, advisory latch, rate-limited
// admission, smoothing delay, provider call under a bounded retry policy,
// and failure classification.
type Service struct {
	drv     driver.Driver
	limiter *RateLimiter
	latch   *Latch
	opts    Options
	logger  *logging.Logger

	// sleep is injectable so retry/backoff tests run without wall-clock
	// waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService wires the dispatcher. The driver must already hold a valid
// credential; construction fails fast rather than surfacing auth errors on
// first use.
func NewService(drv driver.Driver, limiter *RateLimiter, opts Options, logger *logging.Logger) (*Service, error) {
	if drv == nil {
		return nil, errors.New("llm: driver is required")
	}
	if limiter == nil {
		return nil, errors.New("llm: rate limiter is required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("llm: default model is required")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = defaultRetryBaseDelay
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = defaultRetryMaxDelay
	}
	if opts.SmoothingDelay < 0 {
		opts.SmoothingDelay = defaultSmoothingDelay
	}

	return &Service{
		drv:     drv,
		limiter: limiter,
		latch:   NewLatch(DefaultLatchCeiling),
		opts:    opts,
		logger:  logger,
		sleep:   sleepContext,
	}, nil
}

// Limiter exposes the rate limiter for diagnostics endpoints.
func (s *Service) Limiter() *RateLimiter {
	return s.limiter
}

// Complete runs a free-form completion and returns the generated text.
// Failures are ErrNoAnswer (opaque), *ThrottledError, or
// *QuotaExhaustedError.
func (s *Service) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := s.dispatch(ctx, req, nil, nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrNoAnswer
	}
	return text, nil
}

// CompleteJSON runs a JSON-constrained completion and returns the parsed
// object. Unparseable output, even after the salvage pass, is an opaque
// failure rather than a classified one.
func (s *Service) CompleteJSON(ctx context.Context, req CompletionRequest) (map[string]any, error) {
	format := &driver.ResponseFormat{Type: "json_object"}
	resp, err := s.dispatch(ctx, req, format, nil)
	if err != nil {
		return nil, err
	}

	parsed, ok := decodeObject(resp.Content)
	if !ok {
		s.logWarn("json completion returned unparseable content",
			zap.String("model", s.model(req)),
			zap.String("preview", truncate(resp.Content, promptPreviewLimit)))
		return nil, ErrNoAnswer
	}
	return parsed, nil
}

// CompleteVision runs a completion with attached images. The admission cost
// adds a fixed visual surcharge per image on top of the text estimate.
func (s *Service) CompleteVision(ctx context.Context, req VisionRequest) (string, error) {
	if len(req.Images) == 0 {
		return "", errors.New("llm: at least one image is required")
	}

	resp, err := s.dispatch(ctx, req.CompletionRequest, nil, req.Images)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrNoAnswer
	}
	return text, nil
}

func (s *Service) dispatch(ctx context.Context, req CompletionRequest, format *driver.ResponseFormat, images []string) (*driver.Response, error) {
	cost := EstimateCallCost(req.System, req.User, req.MaxTokens)
	cost += len(images) * VisionSurcharge

	release := s.latch.Acquire(ctx)
	defer release()

	waitStart := time.Now()
	if err := s.limiter.Acquire(ctx, cost); err != nil {
		return nil, err
	}
	metrics.RecordAdmissionWait(time.Since(waitStart))

	// Smoothing: a fixed pause between admitted calls, independent of the
	// windows, so bursts that fit both ceilings still arrive spread out.
	if s.opts.SmoothingDelay > 0 {
		if err := s.sleep(ctx, s.opts.SmoothingDelay); err != nil {
			return nil, err
		}
	}

	driverReq := s.buildDriverRequest(req, format, images)
	return s.callWithRetry(ctx, req, driverReq, cost)
}

func (s *Service) buildDriverRequest(req CompletionRequest, format *driver.ResponseFormat, images []string) *driver.Request {
	userBlocks := []driver.ContentBlock{{Type: driver.ContentTypeText, Text: req.User}}
	for _, image := range images {
		userBlocks = append(userBlocks, driver.ContentBlock{Type: driver.ContentTypeImage, ImageURL: image})
	}

	messages := make([]driver.Message, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, driver.Message{
			Role:    "system",
			Content: []driver.ContentBlock{{Type: driver.ContentTypeText, Text: req.System}},
		})
	}
	messages = append(messages, driver.Message{Role: "user", Content: userBlocks})

	driverReq := &driver.Request{
		Model:          s.model(req),
		Messages:       messages,
		ResponseFormat: format,
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		driverReq.MaxTokens = &maxTokens
	}
	temperature := s.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	driverReq.Temperature = &temperature

	return driverReq
}

// callWithRetry wraps the provider call in the bounded retry policy. Only
// transient infrastructure failures are retried; a 429 short-circuits into
// classification because retrying against a throttle would defeat the
// cooldown.
func (s *Service) callWithRetry(ctx context.Context, req CompletionRequest, driverReq *driver.Request, cost int) (*driver.Response, error) {
	timeout := s.opts.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	delay := s.opts.RetryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
			if err := s.sleep(ctx, delay+jitter); err != nil {
				return nil, err
			}
			delay *= 2
			if delay > s.opts.RetryMaxDelay {
				delay = s.opts.RetryMaxDelay
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := s.drv.Complete(callCtx, driverReq)
		cancel()

		if err == nil {
			s.logDispatch(req, driverReq, resp, cost, attempt)
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var perr *driver.ProviderError
		if errors.As(err, &perr) && perr.StatusCode == 429 {
			classified := classify429(perr)
			var throttled *ThrottledError
			if errors.As(classified, &throttled) {
				s.limiter.SetCooldown(throttled.RetryAfter)
				s.logWarn("provider throttled",
					zap.String("model", driverReq.Model),
					zap.Duration("retry_after", throttled.RetryAfter),
					zap.Int("attempt", attempt))
			} else {
				s.logWarn("provider quota exhausted",
					zap.String("model", driverReq.Model),
					zap.String("code", perr.Code))
			}
			return nil, classified
		}

		if !isTransient(err) {
			break
		}

		s.logWarn("transient provider failure, retrying",
			zap.String("model", driverReq.Model),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	s.logWarn("provider call failed",
		zap.String("model", driverReq.Model),
		zap.Int("attempts", s.opts.MaxAttempts),
		zap.Error(lastErr))
	return nil, ErrNoAnswer
}

func (s *Service) model(req CompletionRequest) string {
	if model := strings.TrimSpace(req.Model); model != "" {
		return model
	}
	return s.opts.Model
}

// logDispatch writes the redacted request/response summary: prompt text is
// truncated to a bounded prefix so logs cannot grow with prompt size.
func (s *Service) logDispatch(req CompletionRequest, driverReq *driver.Request, resp *driver.Response, cost, attempt int) {
	if s.logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("model", driverReq.Model),
		zap.String("prompt_preview", truncate(req.User, promptPreviewLimit)),
		zap.Int("estimated_tokens", cost),
		zap.Int("attempt", attempt),
		zap.String("finish_reason", resp.FinishReason),
	}
	if resp.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	}
	s.logger.Info("llm dispatch complete", fields...)
}

func (s *Service) logWarn(msg string, fields ...zap.Field) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, fields...)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return fmt.Sprintf("%s…(+%d chars)", text[:limit], len(text)-limit)
}

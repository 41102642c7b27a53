package llm

import (
	"context"
	"sync"
	"time"
)

const (
	// rateWindow is the trailing interval both admission windows cover.
	rateWindow = time.Minute

	// pollQuantum caps every admission sleep so waiters stay responsive to
	// cooldown changes made by other in-flight calls.
	pollQuantum = 250 * time.Millisecond
)

// RateLimiter tracks provider usage over a trailing one-minute window and
// blocks callers until capacity exists under both the requests-per-minute and
// tokens-per-minute ceilings, and until any active cooldown has elapsed.
//
// All state is process-local and ephemeral. Entries older than the window are
// pruned lazily on each access, so reads are correct-by-construction without
// a background sweep and the clock can be swapped out in tests.
type RateLimiter struct {
	mu            sync.Mutex
	rpm           int
	tpm           int
	requests      []time.Time
	tokens        []tokenEntry
	cooldownUntil time.Time

	// Clock and Sleep are injectable for tests. Defaults: time.Now and a
	// context-aware timer sleep.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

type tokenEntry struct {
	at    time.Time
	count int
}

// Diagnostics is a read-only snapshot of limiter state, intended for a
// health/diagnostics endpoint rather than control flow.
type Diagnostics struct {
	RequestsUsed   int   `json:"requests_used"`
	RequestLimit   int   `json:"request_limit"`
	NextSlotMillis int64 `json:"next_slot_ms"`
	TokensUsed     int   `json:"tokens_used"`
	TokenLimit     int   `json:"token_limit"`
	CooldownMillis int64 `json:"cooldown_ms"`
}

// NewRateLimiter creates a limiter with the given per-minute ceilings.
func NewRateLimiter(rpm, tpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = 1
	}
	if tpm <= 0 {
		tpm = 1
	}
	return &RateLimiter{rpm: rpm, tpm: tpm}
}

// Acquire blocks until the call can be admitted under the cooldown, the token
// window, and the request window, then records the admission. It never
// rejects for capacity; the only error is ctx cancellation.
//
// The three checks are re-evaluated together on every wake-up because a
// concurrent throttling event can arm or move the cooldown deadline while
// this caller is waiting.
func (rl *RateLimiter) Acquire(ctx context.Context, tokens int) error {
	if tokens < 0 {
		tokens = 0
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, admitted := rl.tryAdmit(tokens)
		if admitted {
			return nil
		}

		if wait <= 0 {
			wait = pollQuantum
		}
		if wait > pollQuantum {
			wait = pollQuantum
		}
		if err := rl.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAdmit performs one prune-then-check pass. It returns the suggested wait
// when admission is not possible yet.
func (rl *RateLimiter) tryAdmit(tokens int) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.pruneLocked(now)

	if now.Before(rl.cooldownUntil) {
		return rl.cooldownUntil.Sub(now), false
	}

	if sum := rl.tokenSumLocked(); sum+tokens > rl.tpm {
		// A cost larger than the whole ceiling can never fit; admit it with
		// an empty window and let the provider answer for itself.
		if len(rl.tokens) > 0 {
			return rl.tokens[0].at.Add(rateWindow).Sub(now), false
		}
	}

	if len(rl.requests) >= rl.rpm {
		return rl.requests[0].Add(rateWindow).Sub(now), false
	}

	rl.requests = append(rl.requests, now)
	if tokens > 0 {
		rl.tokens = append(rl.tokens, tokenEntry{at: now, count: tokens})
	}
	return 0, true
}

// SetCooldown arms the cooldown deadline at now+d. The deadline is always
// overwritten, never merged: a later throttle reply replaces the prior
// deadline with its own hint even when that is shorter.
func (rl *RateLimiter) SetCooldown(d time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cooldownUntil = rl.now().Add(d)
}

// CooldownRemaining reports how long new admissions will keep waiting on the
// cooldown, or zero when none is active.
func (rl *RateLimiter) CooldownRemaining() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	remaining := rl.cooldownUntil.Sub(rl.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot returns current window usage for diagnostics.
func (rl *RateLimiter) Snapshot() Diagnostics {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.pruneLocked(now)

	diag := Diagnostics{
		RequestsUsed: len(rl.requests),
		RequestLimit: rl.rpm,
		TokensUsed:   rl.tokenSumLocked(),
		TokenLimit:   rl.tpm,
	}
	if len(rl.requests) >= rl.rpm {
		diag.NextSlotMillis = rl.requests[0].Add(rateWindow).Sub(now).Milliseconds()
	}
	if now.Before(rl.cooldownUntil) {
		diag.CooldownMillis = rl.cooldownUntil.Sub(now).Milliseconds()
	}
	return diag
}

func (rl *RateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-rateWindow)

	idx := 0
	for idx < len(rl.requests) && !rl.requests[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		rl.requests = append(rl.requests[:0], rl.requests[idx:]...)
	}

	idx = 0
	for idx < len(rl.tokens) && !rl.tokens[idx].at.After(cutoff) {
		idx++
	}
	if idx > 0 {
		rl.tokens = append(rl.tokens[:0], rl.tokens[idx:]...)
	}
}

func (rl *RateLimiter) tokenSumLocked() int {
	sum := 0
	for _, entry := range rl.tokens {
		sum += entry.count
	}
	return sum
}

func (rl *RateLimiter) now() time.Time {
	if rl.Clock != nil {
		return rl.Clock()
	}
	return time.Now()
}

func (rl *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if rl.Sleep != nil {
		return rl.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

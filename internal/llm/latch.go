package llm

import (
	"context"
	"sync"
	"time"
)

// DefaultLatchCeiling bounds how long an acquire attempt waits for the slot
// before giving up and proceeding anyway.
const DefaultLatchCeiling = 8 * time.Second

// Latch is a process-wide advisory single-slot lock placed around provider
// calls to keep concurrent handlers from hitting the admission gate at the
// same instant.
//
// It is intentionally weaker than a mutex: an acquire that outlives the wait
// ceiling proceeds without the slot rather than failing, so the latch reduces
// overlap but never rejects a caller and can never wedge the process.
type Latch struct {
	slot    chan struct{}
	ceiling time.Duration
}

// NewLatch creates a latch with the given wait ceiling. A non-positive
// ceiling falls back to the default.
func NewLatch(ceiling time.Duration) *Latch {
	if ceiling <= 0 {
		ceiling = DefaultLatchCeiling
	}
	return &Latch{
		slot:    make(chan struct{}, 1),
		ceiling: ceiling,
	}
}

// Acquire waits up to the ceiling for the slot and returns a release func.
// The release is idempotent and is a no-op when the slot was never taken, so
// callers can always defer it and a failure inside the guarded call can never
// leave the latch held.
func (l *Latch) Acquire(ctx context.Context) func() {
	select {
	case l.slot <- struct{}{}:
		return l.releaseOnce()
	default:
	}

	timer := time.NewTimer(l.ceiling)
	defer timer.Stop()

	select {
	case l.slot <- struct{}{}:
		return l.releaseOnce()
	case <-timer.C:
		return func() {}
	case <-ctx.Done():
		return func() {}
	}
}

func (l *Latch) releaseOnce() func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-l.slot })
	}
}

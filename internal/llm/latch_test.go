package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatchReleasedOnErrorPath(t *testing.T) {
	latch := NewLatch(50 * time.Millisecond)

	func() {
		release := latch.Acquire(context.Background())
		defer release()
		// Simulates a guarded call failing partway through.
	}()

	// The slot must be free again: a fresh acquire may not need to wait out
	// the ceiling.
	start := time.Now()
	release := latch.Acquire(context.Background())
	release()
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLatchTimedOutAcquireProceeds(t *testing.T) {
	latch := NewLatch(30 * time.Millisecond)

	holder := latch.Acquire(context.Background())
	defer holder()

	// Slot is held; the second acquire must give up at the ceiling and
	// proceed anyway.
	start := time.Now()
	release := latch.Acquire(context.Background())
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	require.Less(t, elapsed, 500*time.Millisecond)

	// Releasing a slot that was never taken must not free the holder's slot.
	release()
	start = time.Now()
	again := latch.Acquire(context.Background())
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	again()
}

func TestLatchReleaseIsIdempotent(t *testing.T) {
	latch := NewLatch(time.Second)

	release := latch.Acquire(context.Background())
	release()
	release()

	start := time.Now()
	next := latch.Acquire(context.Background())
	next()
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

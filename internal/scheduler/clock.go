package scheduler

import (
	"context"
	"runtime"
	"time"
)

// Clock is injected so tests can run the loop on virtual time.
type Clock interface {
	Now() time.Time
	// Sleep blocks for about d or until ctx is done. A zero d yields.
	Sleep(ctx context.Context, d time.Duration) error
}

// WallClock sleeps with timers and yields for the final spin.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// spinWindow is left to busy-waiting so timer overshoot never pushes a send
// past its deadline.
const spinWindow = 2 * time.Millisecond

// waitUntil returns once the clock reads strictly after deadline.
func waitUntil(ctx context.Context, clock Clock, deadline time.Time) error {
	for {
		now := clock.Now()
		if now.After(deadline) {
			return nil
		}
		var d time.Duration
		if remaining := deadline.Sub(now); remaining > spinWindow {
			d = remaining - spinWindow
		}
		if err := clock.Sleep(ctx, d); err != nil {
			return err
		}
	}
}

package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"ndi-chaos-go/internal/timecode"
)

var (
	ErrClockedByProtocol = errors.New("jitter has no effect while the sink clocks video (launch with clock=override)")
	ErrInvalidJitter     = errors.New("jitter bounds must be non-negative")
)

// Controls is the configuration shared between the operator and the running
// scheduler. Every method is safe for concurrent use.
type Controls struct {
	clockedByProtocol bool

	jitterMu   sync.Mutex
	jitterLow  int
	jitterHigh int

	stallMu        sync.Mutex
	stallRequested bool
	stallMs        int

	mode atomic.Int32
}

func NewControls(clockedByProtocol bool, jitterLow, jitterHigh int, mode timecode.Mode) *Controls {
	c := &Controls{
		clockedByProtocol: clockedByProtocol,
		jitterLow:         max(jitterLow, 0),
		jitterHigh:        max(jitterHigh, 0),
	}
	c.mode.Store(int32(mode))
	return c
}

func (c *Controls) ClockedByProtocol() bool {
	return c.clockedByProtocol
}

// SetJitter replaces both bounds at once. It is a no-op returning
// ErrClockedByProtocol when the sink clocks video.
func (c *Controls) SetJitter(low, high int) error {
	if c.clockedByProtocol {
		return ErrClockedByProtocol
	}
	if low < 0 || high < 0 {
		return fmt.Errorf("%w: %d..%d", ErrInvalidJitter, low, high)
	}
	c.jitterMu.Lock()
	c.jitterLow = low
	c.jitterHigh = high
	c.jitterMu.Unlock()
	return nil
}

// Jitter returns a consistent pair with high >= low.
func (c *Controls) Jitter() (low, high int) {
	c.jitterMu.Lock()
	low, high = c.jitterLow, c.jitterHigh
	c.jitterMu.Unlock()
	if high < low {
		high = low
	}
	return low, high
}

// RequestStall arms a single stall. ms <= 0 lets the scheduler pick a
// random duration when it fires.
func (c *Controls) RequestStall(ms int) {
	c.stallMu.Lock()
	c.stallRequested = true
	c.stallMs = max(ms, 0)
	c.stallMu.Unlock()
}

func (c *Controls) StallPending() bool {
	c.stallMu.Lock()
	defer c.stallMu.Unlock()
	return c.stallRequested
}

// TakeStall consumes the pending request, if any.
func (c *Controls) TakeStall() (ms int, ok bool) {
	c.stallMu.Lock()
	defer c.stallMu.Unlock()
	if !c.stallRequested {
		return 0, false
	}
	ms = c.stallMs
	c.stallRequested = false
	c.stallMs = 0
	return ms, true
}

func (c *Controls) SetMode(mode timecode.Mode) {
	c.mode.Store(int32(mode))
}

func (c *Controls) Mode() timecode.Mode {
	return timecode.Mode(c.mode.Load())
}

func (c *Controls) Snapshot() map[string]any {
	low, high := c.Jitter()
	return map[string]any{
		"clocked_by_protocol": c.clockedByProtocol,
		"jitter_low_ms":       low,
		"jitter_high_ms":      high,
		"stall_pending":       c.StallPending(),
		"timecode_mode":       c.Mode().String(),
	}
}

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ndi-chaos-go/internal/timecode"
)

func TestControlsJitterClampedAtRead(t *testing.T) {
	c := NewControls(false, 50, 10, timecode.ModeSynthesize)
	low, high := c.Jitter()
	assert.Equal(t, 50, low)
	assert.Equal(t, 50, high)

	assert.NoError(t, c.SetJitter(5, 2))
	low, high = c.Jitter()
	assert.Equal(t, 5, low)
	assert.Equal(t, 5, high)
}

func TestControlsRejectNegativeJitter(t *testing.T) {
	c := NewControls(false, 0, 0, timecode.ModeSynthesize)
	assert.ErrorIs(t, c.SetJitter(-1, 5), ErrInvalidJitter)
	low, high := c.Jitter()
	assert.Zero(t, low)
	assert.Zero(t, high)

	c = NewControls(false, -4, -2, timecode.ModeSynthesize)
	low, high = c.Jitter()
	assert.Zero(t, low)
	assert.Zero(t, high)
}

func TestControlsJitterIgnoredWhenClocked(t *testing.T) {
	c := NewControls(true, 0, 0, timecode.ModeSynthesize)
	assert.ErrorIs(t, c.SetJitter(10, 20), ErrClockedByProtocol)
	low, high := c.Jitter()
	assert.Zero(t, low)
	assert.Zero(t, high)
}

func TestControlsStallIsSingleShot(t *testing.T) {
	c := NewControls(false, 0, 0, timecode.ModeSynthesize)
	_, ok := c.TakeStall()
	assert.False(t, ok)

	c.RequestStall(80)
	assert.True(t, c.StallPending())
	ms, ok := c.TakeStall()
	assert.True(t, ok)
	assert.Equal(t, 80, ms)
	assert.False(t, c.StallPending())
	_, ok = c.TakeStall()
	assert.False(t, ok)

	c.RequestStall(-5)
	ms, ok = c.TakeStall()
	assert.True(t, ok)
	assert.Zero(t, ms)
}

func TestControlsConcurrentAccess(t *testing.T) {
	c := NewControls(false, 0, 0, timecode.ModeSynthesize)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = c.SetJitter(i%100, i%100+10)
			c.RequestStall(i % 7)
			c.SetMode(timecode.Mode(i % 5))
		}
	}()

	for i := 0; i < 5000; i++ {
		low, high := c.Jitter()
		assert.GreaterOrEqual(t, high, low)
		c.TakeStall()
		_ = c.Mode().String()
	}
	close(stop)
	wg.Wait()
}

func TestControlsSnapshot(t *testing.T) {
	c := NewControls(false, 3, 9, timecode.ModeRandom)
	c.RequestStall(1)
	snap := c.Snapshot()
	assert.Equal(t, 3, snap["jitter_low_ms"])
	assert.Equal(t, 9, snap["jitter_high_ms"])
	assert.Equal(t, true, snap["stall_pending"])
	assert.Equal(t, "Random", snap["timecode_mode"])
	assert.Equal(t, false, snap["clocked_by_protocol"])
}

func TestWaitUntilWallClock(t *testing.T) {
	deadline := time.Now().Add(20 * time.Millisecond)
	assert.NoError(t, waitUntil(context.Background(), WallClock{}, deadline))
	now := time.Now()
	assert.True(t, now.After(deadline))
	assert.Less(t, now.Sub(deadline), 15*time.Millisecond)
}

func TestWaitUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitUntil(ctx, WallClock{}, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

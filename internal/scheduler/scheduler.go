// Package scheduler runs the real-time loop that paces frames out of the
// pool, injects jitter and stalls, stamps timecodes and submits to a sink.
//
// The loop owns the frame index, the iteration counter and the last emit
// time. Operators only reach it through Controls, which take effect on the
// next iteration.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/sink"
	"ndi-chaos-go/internal/timecode"
	"ndi-chaos-go/internal/types"
)

var (
	ErrAlreadyStarted   = errors.New("scheduler: already started")
	ErrFrameUnavailable = errors.New("scheduler: frame unavailable")
)

// MaxRandomStallMs bounds stalls requested without an explicit duration.
const MaxRandomStallMs = 124

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// FrameSource is the pre-rendered frame ring.
type FrameSource interface {
	Len() int
	Frame(i int) (types.PackedFrame, bool)
}

type Config struct {
	Name      string
	FrameRate int
}

type Option func(*Scheduler)

func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRand injects the source used for jitter, random stalls and random
// timecodes.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) {
		if rng != nil {
			s.rng = rng
		}
	}
}

type Scheduler struct {
	cfg      Config
	frames   FrameSource
	sink     sink.Sink
	controls *Controls
	clock    Clock
	rng      *rand.Rand
	stats    Stats
	state    atomic.Int32
	done     chan struct{}
	err      error

	frameIndex int
	iteration  int64
	lastEmit   time.Time
	lastSend   time.Time
}

func New(cfg Config, frames FrameSource, s sink.Sink, controls *Controls, opts ...Option) (*Scheduler, error) {
	if cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("scheduler: invalid frame rate %d", cfg.FrameRate)
	}
	if frames == nil || frames.Len() != cfg.FrameRate {
		return nil, fmt.Errorf("scheduler: frame pool must hold exactly %d frames", cfg.FrameRate)
	}
	if s == nil || controls == nil {
		return nil, errors.New("scheduler: sink and controls are required")
	}
	sch := &Scheduler{
		cfg:      cfg,
		frames:   frames,
		sink:     s,
		controls: controls,
		clock:    WallClock{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sch)
	}
	return sch, nil
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Done is closed once the scheduler reaches StateStopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err waits for a started loop to stop and reports why. It is nil after a
// cancellation, and nil without waiting when Run was never called.
func (s *Scheduler) Err() error {
	if s.State() == StateIdle {
		return nil
	}
	<-s.done
	return s.err
}

func (s *Scheduler) Stats() *Stats {
	return &s.stats
}

func (s *Scheduler) Snapshot() map[string]any {
	out := s.stats.snapshot()
	out["state"] = s.State().String()
	out["frame_rate"] = s.cfg.FrameRate
	out["source"] = s.cfg.Name
	return out
}

// Run creates the source, loops until ctx is cancelled or a send fails, and
// destroys the source. Cancellation returns nil.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	defer func() {
		s.err = err
		s.state.Store(int32(StateStopped))
		close(s.done)
	}()

	clocked := s.controls.ClockedByProtocol()
	handle, err := s.sink.Create(s.cfg.Name, clocked)
	if err != nil {
		return fmt.Errorf("create source %q: %w", s.cfg.Name, err)
	}
	defer func() {
		if derr := s.sink.Destroy(handle); derr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Scheduler.Run",
				"error":    derr,
			}).Warn("Failed to destroy source")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"function":   "Scheduler.Run",
		"source":     s.cfg.Name,
		"frame_rate": s.cfg.FrameRate,
		"self_paced": !clocked,
	}).Info("Scheduler running")

	s.lastEmit = s.clock.Now()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.step(ctx, handle, clocked); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			s.stats.sendErrors.Add(1)
			logrus.WithFields(logrus.Fields{
				"function":  "Scheduler.Run",
				"iteration": s.iteration,
				"error":     err,
			}).Error("Scheduler stopped")
			return err
		}
	}
}

func (s *Scheduler) step(ctx context.Context, handle sink.Handle, clocked bool) error {
	if !clocked {
		deadline := s.lastEmit.Add(s.period() - time.Millisecond)
		if low, high := s.controls.Jitter(); low != 0 || high != 0 {
			deadline = deadline.Add(time.Duration(low+s.rng.Intn(high-low+1)) * time.Millisecond)
		}
		if err := waitUntil(ctx, s.clock, deadline); err != nil {
			return err
		}
	}

	if ms, ok := s.controls.TakeStall(); ok {
		if ms <= 0 {
			ms = 1 + s.rng.Intn(MaxRandomStallMs)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Scheduler.step",
			"stall_ms": ms,
		}).Info("Stalling")
		started := s.clock.Now()
		if err := waitUntil(ctx, s.clock, started.Add(time.Duration(ms)*time.Millisecond)); err != nil {
			return err
		}
		s.stats.stalls.Add(1)
		s.stats.stallNanos.Add(int64(s.clock.Now().Sub(started)))
	}

	packed, ok := s.frames.Frame(s.frameIndex)
	if !ok {
		return fmt.Errorf("%w: index %d", ErrFrameUnavailable, s.frameIndex)
	}

	now := s.clock.Now()
	tc := timecode.Compute(s.controls.Mode(), s.iteration, now, s.rng)
	frame := types.VideoFrame{
		Index:      s.frameIndex,
		Width:      packed.Width,
		Height:     packed.Height,
		Stride:     packed.Stride(),
		FourCC:     types.FourCCUYVY,
		FrameRateN: s.cfg.FrameRate,
		FrameRateD: 1,
		Timecode:   tc,
		Data:       packed.Data,
	}
	if err := s.sink.Send(handle, frame); err != nil {
		return fmt.Errorf("send frame %d (iteration %d): %w", s.frameIndex, s.iteration, err)
	}

	var gap int64
	if !s.lastSend.IsZero() {
		gap = int64(now.Sub(s.lastSend))
	}
	s.lastSend = now
	s.stats.recordSend(s.frameIndex, tc, gap, now.UnixNano())

	s.frameIndex = (s.frameIndex + 1) % s.cfg.FrameRate
	s.iteration++
	s.lastEmit = s.clock.Now()
	return nil
}

func (s *Scheduler) period() time.Duration {
	return time.Second / time.Duration(s.cfg.FrameRate)
}

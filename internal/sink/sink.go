// Package sink holds the protocol endpoints frames are submitted to.
//
// A Sink hands out opaque handles per named source. When a source is created
// with clockVideo set, the sink paces Send to the frame rate carried by each
// frame, the way a self-clocking protocol sender would; otherwise Send
// returns as soon as the frame is handed off.
package sink

import (
	"errors"
	"sync"
	"time"

	"ndi-chaos-go/internal/types"
)

var (
	ErrUnknownHandle = errors.New("sink: unknown handle")
	ErrClosed        = errors.New("sink: closed")
)

type Handle uint64

type Sink interface {
	Create(name string, clockVideo bool) (Handle, error)
	Send(h Handle, frame types.VideoFrame) error
	Destroy(h Handle) error
}

type source struct {
	mu         sync.Mutex
	name       string
	clockVideo bool
	sequence   uint64
	pacer      pacer
}

type registry struct {
	mu      sync.Mutex
	next    Handle
	closed  bool
	sources map[Handle]*source
}

func (r *registry) add(name string, clockVideo bool) (Handle, *source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, nil, ErrClosed
	}
	if r.sources == nil {
		r.sources = make(map[Handle]*source)
	}
	r.next++
	src := &source{name: name, clockVideo: clockVideo}
	r.sources[r.next] = src
	return r.next, src, nil
}

func (r *registry) get(h Handle) (*source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	src, ok := r.sources[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return src, nil
}

func (r *registry) remove(h Handle) (*source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	delete(r.sources, h)
	return src, nil
}

func (r *registry) close() {
	r.mu.Lock()
	r.closed = true
	r.sources = nil
	r.mu.Unlock()
}

// pacer spaces consecutive sends by one frame period.
type pacer struct {
	last  time.Time
	sleep func(time.Duration)
	now   func() time.Time
}

func (p *pacer) wait(rateN, rateD int) {
	if rateN <= 0 || rateD <= 0 {
		return
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	sleep := time.Sleep
	if p.sleep != nil {
		sleep = p.sleep
	}
	period := time.Duration(int64(time.Second) * int64(rateD) / int64(rateN))
	current := now()
	if p.last.IsZero() {
		p.last = current
		return
	}
	next := p.last.Add(period)
	if next.After(current) {
		sleep(next.Sub(current))
		p.last = next
		return
	}
	// Fell behind: restart the cadence rather than bursting to catch up.
	p.last = current
}

func newMessage(kind string, src *source, frame types.VideoFrame, withData bool) types.Message {
	msg := types.Message{
		Type:       kind,
		Source:     src.name,
		Sequence:   src.sequence,
		SentAt:     time.Now().UnixNano(),
		Index:      frame.Index,
		Width:      frame.Width,
		Height:     frame.Height,
		Stride:     frame.Stride,
		FourCC:     frame.FourCC,
		FrameRateN: frame.FrameRateN,
		FrameRateD: frame.FrameRateD,
		Timecode:   frame.Timecode,
		ClockVideo: src.clockVideo,
	}
	if withData {
		msg.Data = frame.Data
	}
	return msg
}
